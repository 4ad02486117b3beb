package domain

import "time"

type Account struct {
	AccountID     string     `json:"id" dynamodbav:"account_id"`
	Username      string     `json:"username" dynamodbav:"username"`
	Email         string     `json:"email" dynamodbav:"email"`
	EmailVerified bool       `json:"email_verified" dynamodbav:"email_verified"`
	Role          string     `json:"role" dynamodbav:"role"`
	OTPCode       *string    `json:"-" dynamodbav:"otp_code"`
	OTPExpiresAt  *time.Time `json:"-" dynamodbav:"otp_expires_at"`
	GoogleSub     string     `json:"-" dynamodbav:"google_sub"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// HasPendingOTP reports whether an OTP challenge is outstanding.
// Code and expiry are set and cleared together; a record with only one
// of the two is treated as having no pending challenge.
func (a *Account) HasPendingOTP() bool {
	return a.OTPCode != nil && a.OTPExpiresAt != nil
}
