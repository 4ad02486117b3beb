package domain

import "time"

// Credential is the password hash record for an account. It lives in its
// own table: accounts created through federated login have no credential
// until a password reset sets one.
type Credential struct {
	AccountID    string    `json:"-" dynamodbav:"account_id"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"-" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"-" dynamodbav:"updated_at"`
}
