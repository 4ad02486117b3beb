package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-identity-nosql/internal/config"
	"github.com/go-identity-nosql/internal/infrastructure/dynamo"
	googleinfra "github.com/go-identity-nosql/internal/infrastructure/google"
	jwtinfra "github.com/go-identity-nosql/internal/infrastructure/jwt"
	"github.com/go-identity-nosql/internal/infrastructure/notify"
	"github.com/go-identity-nosql/internal/infrastructure/smtp"
	snsinfra "github.com/go-identity-nosql/internal/infrastructure/sns"
	transporthttp "github.com/go-identity-nosql/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Token issuer. A missing JWT_SECRET is fatal in production.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	// Notification sink, selected by NOTIFY_DRIVER.
	var sink notify.Sink
	switch cfg.NotifyDriver {
	case "smtp":
		sink = smtp.NewMailer(cfg)
	case "sns":
		publisher, err := snsinfra.NewPublisher(cfg)
		if err != nil {
			log.Fatalf("sns publisher: %v", err)
		}
		sink = publisher
	default:
		sink = notify.NewLogSink()
	}

	// Google ID-token verifier (optional — federated login disabled without it).
	var verifier *googleinfra.Verifier
	if cfg.GoogleClientID != "" {
		verifier = googleinfra.NewVerifier(cfg.GoogleClientID)
	} else {
		log.Println("WARN: GOOGLE_CLIENT_ID not set; google login disabled")
	}

	deps := &transporthttp.Deps{
		AccountRepo:    dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts, cfg.DynamoTables.Credentials),
		CredentialRepo: dynamo.NewCredentialRepo(dynamoClient, cfg.DynamoTables.Credentials),
		ResetRepo:      dynamo.NewResetRepo(dynamoClient, cfg.DynamoTables.PasswordResets),
		JWTProvider:    jwtProvider,
		Sink:           sink,
		GoogleVerifier: verifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
