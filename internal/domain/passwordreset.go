package domain

import "time"

// PasswordReset is a single-use reset authorization.
// PK: reset_token. Consumption deletes the record; ExpiresAt doubles as
// the DynamoDB TTL attribute so abandoned tokens eventually vanish.
type PasswordReset struct {
	Token     string    `json:"-" dynamodbav:"reset_token"`
	AccountID string    `json:"-" dynamodbav:"account_id"`
	ExpiresAt int64     `json:"-" dynamodbav:"expires_at"` // Unix seconds
	CreatedAt time.Time `json:"-" dynamodbav:"created_at"`
}

// Expired reports whether the token's lifetime has passed at the given instant.
func (p *PasswordReset) Expired(now time.Time) bool {
	return p.ExpiresAt < now.Unix()
}
