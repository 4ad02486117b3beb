package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret string
	JWTExpiry time.Duration

	OTPExpiry        time.Duration
	ResetTokenExpiry time.Duration
	ResetLinkBase    string // prefix for reset links sent to users

	GoogleClientID string

	NotifyDriver string // "smtp" | "sns" | "log"
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string
	SNSTopicARN  string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts       string
	Credentials    string
	PasswordResets string
}

// Production reports whether the process runs with production settings.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:       getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Credentials:    getEnv("DYNAMO_TABLE_CREDENTIALS", "credentials"),
			PasswordResets: getEnv("DYNAMO_TABLE_PASSWORD_RESETS", "password_resets"),
		},

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		OTPExpiry:        time.Duration(getEnvInt("OTP_EXPIRY_MINUTES", 15)) * time.Minute,
		ResetTokenExpiry: time.Duration(getEnvInt("RESET_TOKEN_EXPIRY_MINUTES", 60)) * time.Minute,
		ResetLinkBase:    getEnv("RESET_LINK_BASE", "http://localhost:3000/reset-password"),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		NotifyDriver: getEnv("NOTIFY_DRIVER", "log"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:  getEnv("SNS_TOPIC_ARN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
