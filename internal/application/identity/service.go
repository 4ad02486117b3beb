package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-identity-nosql/internal/domain"
	"github.com/go-identity-nosql/internal/infrastructure/notify"
	"github.com/go-identity-nosql/internal/pkg/code"
	"github.com/go-identity-nosql/internal/pkg/id"
	"github.com/go-identity-nosql/internal/pkg/password"
)

// Response messages. The password-reset request message is deliberately the
// same whether or not the email exists, so callers cannot probe for
// registered addresses.
const (
	msgRegistered    = "Registered successfully. Please verify OTP sent to email."
	msgEmailVerified = "Email verified successfully"
	msgResetRequest  = "If the email is registered, a reset link has been sent."
	msgPasswordReset = "Password has been reset successfully"
)

const notifyTimeout = 10 * time.Second

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     *string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// Profile is a verified federated identity handed back by the external
// provider. The email, when present, is already proven by the provider.
type Profile struct {
	ID    string
	Email string
	Name  string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (string, error)
	Login(ctx context.Context, req LoginRequest) (accessToken string, err error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error)
	FederatedLogin(ctx context.Context, p Profile) (accessToken string, err error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error)
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account, cred *domain.Credential) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
}

type credentialStore interface {
	Get(ctx context.Context, accountID string) (*domain.Credential, error)
	Put(ctx context.Context, c *domain.Credential) error
}

type resetStore interface {
	Put(ctx context.Context, p *domain.PasswordReset) error
	Consume(ctx context.Context, token string) (*domain.PasswordReset, error)
}

type tokenSigner interface {
	Sign(accountID, email, role string) (string, error)
}

type service struct {
	accounts      accountStore
	credentials   credentialStore
	resets        resetStore
	signer        tokenSigner
	sink          notify.Sink
	otpExpiry     time.Duration
	resetExpiry   time.Duration
	resetLinkBase string
}

type ServiceDeps struct {
	AccountRepo    accountStore
	CredentialRepo credentialStore
	ResetRepo      resetStore
	Signer         tokenSigner
	Sink           notify.Sink
	OTPExpiry      time.Duration
	ResetExpiry    time.Duration
	ResetLinkBase  string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts:      deps.AccountRepo,
		credentials:   deps.CredentialRepo,
		resets:        deps.ResetRepo,
		signer:        deps.Signer,
		sink:          deps.Sink,
		otpExpiry:     deps.OTPExpiry,
		resetExpiry:   deps.ResetExpiry,
		resetLinkBase: deps.ResetLinkBase,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	// Pre-check is an optimization for a friendly error; the conditional
	// write inside accounts.Create is the authoritative duplicate guard.
	if _, err := s.accounts.GetByEmail(ctx, req.Email); err == nil {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return "", err
	}
	otp, err := code.OTP()
	if err != nil {
		return "", err
	}

	username := req.Email
	if req.Name != nil && *req.Name != "" {
		username = *req.Name
	}
	now := time.Now().UTC()
	otpExpiresAt := now.Add(s.otpExpiry)
	a := &domain.Account{
		AccountID:     id.New(),
		Username:      username,
		Email:         req.Email,
		EmailVerified: false,
		Role:          domain.RoleUser,
		OTPCode:       &otp,
		OTPExpiresAt:  &otpExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	cred := &domain.Credential{
		AccountID:    a.AccountID,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, a, cred); err != nil {
		return "", err
	}

	s.dispatch(a.Email, "Verify your email", "Your verification code: "+otp)
	return msgRegistered, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (string, error) {
	// Missing account, missing credential, and wrong password all produce
	// the same error so callers can't probe which emails are registered.
	a, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return "", err
	}
	cred, err := s.credentials.Get(ctx, a.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return "", err
	}
	if !password.Verify(req.Password, cred.PasswordHash) {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !a.EmailVerified {
		return "", fmt.Errorf("email is not verified: %w", domain.ErrUnauthorized)
	}
	return s.signer.Sign(a.AccountID, a.Email, a.Role)
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (string, error) {
	a, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
		}
		return "", err
	}
	// A verified account has no pending OTP, so a repeat verification
	// lands here rather than reporting "already verified".
	if !a.HasPendingOTP() {
		return "", fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}
	if *a.OTPCode != req.OTP {
		return "", fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}
	if a.OTPExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("OTP has expired: %w", domain.ErrBadRequest)
	}
	// Code and expiry are cleared together to keep the pairing invariant.
	err = s.accounts.Update(ctx, a.AccountID, map[string]interface{}{
		"email_verified": true,
		"otp_code":       nil,
		"otp_expires_at": nil,
	})
	if err != nil {
		return "", err
	}
	return msgEmailVerified, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same message as the success path — no account-existence oracle.
			return msgResetRequest, nil
		}
		return "", err
	}

	token, err := code.ResetToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	p := &domain.PasswordReset{
		Token:     token,
		AccountID: a.AccountID,
		ExpiresAt: now.Add(s.resetExpiry).Unix(),
		CreatedAt: now,
	}
	if err := s.resets.Put(ctx, p); err != nil {
		return "", err
	}

	s.dispatch(a.Email, "Password reset", "Reset your password: "+s.resetLinkBase+"?token="+token)
	return msgResetRequest, nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	// Consume deletes atomically; of concurrent attempts with the same
	// token exactly one gets the record. Expired tokens are consumed and
	// rejected with the same error as unknown ones.
	p, err := s.resets.Consume(ctx, req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("invalid or expired token: %w", domain.ErrBadRequest)
		}
		return "", err
	}
	if p.Expired(time.Now()) {
		return "", fmt.Errorf("invalid or expired token: %w", domain.ErrBadRequest)
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	cred := &domain.Credential{
		AccountID:    p.AccountID,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.credentials.Put(ctx, cred); err != nil {
		return "", err
	}
	return msgPasswordReset, nil
}

func (s *service) FederatedLogin(ctx context.Context, p Profile) (string, error) {
	if p.Email == "" {
		return "", fmt.Errorf("federated account has no email address: %w", domain.ErrBadRequest)
	}

	a, err := s.accounts.GetByEmail(ctx, p.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a, err = s.createFederated(ctx, p)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	case a.GoogleSub == "":
		// Existing password account: link the federated identity. Proof
		// of email ownership from the provider supersedes OTP verification.
		err = s.accounts.Update(ctx, a.AccountID, map[string]interface{}{
			"google_sub":     p.ID,
			"email_verified": true,
		})
		if err != nil {
			return "", err
		}
		a.GoogleSub = p.ID
		a.EmailVerified = true
	}

	return s.signer.Sign(a.AccountID, a.Email, a.Role)
}

// createFederated provisions a pre-verified account with no credential.
// Losing a creation race to a concurrent registration is fine: the store
// reports the conflict and the existing account is used instead.
func (s *service) createFederated(ctx context.Context, p Profile) (*domain.Account, error) {
	username := p.Email
	if p.Name != "" {
		username = p.Name
	}
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:     id.New(),
		Username:      username,
		Email:         p.Email,
		EmailVerified: true,
		Role:          domain.RoleUser,
		GoogleSub:     p.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.accounts.Create(ctx, a, nil)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return s.accounts.GetByEmail(ctx, p.Email)
	}
	return nil, err
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.accounts.ScanPage(ctx, int32(limit), cursor)
}

// dispatch fires a notification without blocking or failing the calling
// operation. Failures are logged and dropped.
func (s *service) dispatch(to, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.sink.Send(ctx, to, subject, body); err != nil {
			slog.Warn("notification delivery failed", "to", to, "subject", subject, "err", err)
		}
	}()
}
