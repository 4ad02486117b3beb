package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-identity-nosql/internal/application/identity"
	"github.com/go-identity-nosql/internal/config"
	"github.com/go-identity-nosql/internal/domain"
	"github.com/go-identity-nosql/internal/infrastructure/google"
	jwtinfra "github.com/go-identity-nosql/internal/infrastructure/jwt"
	"github.com/go-identity-nosql/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockIdentitySvc struct{ mock.Mock }

func (m *mockIdentitySvc) Register(ctx context.Context, req identity.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) Login(ctx context.Context, req identity.LoginRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) VerifyOTP(ctx context.Context, req identity.VerifyOTPRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) ResetPassword(ctx context.Context, req identity.ResetPasswordRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) FederatedLogin(ctx context.Context, p identity.Profile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockIdentitySvc) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentitySvc) List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]domain.Account), args.String(1), args.Error(2)
}

type mockGoogleVerifier struct{ mock.Mock }

func (m *mockGoogleVerifier) Verify(ctx context.Context, token string) (*google.Profile, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	p, err := jwtinfra.NewProvider(&config.Config{
		JWTSecret: "handler-test-secret",
		JWTExpiry: 24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given account and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, accountID, email, role string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(accountID, email, role)
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.RegisterRequest{Email: "alice@example.com", Password: "short"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return("", domain.ErrConflict)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.RegisterRequest{Email: "alice@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestRegister_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return("User registered. Please verify your email.", nil)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.RegisterRequest{Email: "alice@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Message)
	svc.AssertExpectations(t)
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Login", mock.Anything, identity.LoginRequest{Email: "alice@example.com", Password: "secret123"}).
		Return("access-token", nil)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp TokenEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	svc.AssertExpectations(t)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return("", domain.ErrUnauthorized)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_ValidationFailure(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.LoginRequest{Email: "not-an-email", Password: "x"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

// --- OTP verification tests ---

func TestVerifyOTP_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("VerifyOTP", mock.Anything, identity.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"}).
		Return("Email verified successfully", nil)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/verify-otp", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestVerifyOTP_WrongLength(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.VerifyOTPRequest{Email: "alice@example.com", OTP: "1234"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/verify-otp", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyEmail_QueryParams(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("VerifyOTP", mock.Anything, identity.VerifyOTPRequest{Email: "alice@example.com", OTP: "654321"}).
		Return("Email verified successfully", nil)
	h := NewAuthHandler(svc, nil)
	r := httptest.NewRequest(http.MethodGet, "/v1/auth/verify-email?email=alice%40example.com&otp=654321", nil)
	rr := httptest.NewRecorder()
	h.VerifyEmail(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestVerifyEmail_MissingParams(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	r := httptest.NewRequest(http.MethodGet, "/v1/auth/verify-email", nil)
	rr := httptest.NewRecorder()
	h.VerifyEmail(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

// --- password reset tests ---

func TestRequestPasswordReset_AlwaysGenericMessage(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("RequestPasswordReset", mock.Anything, "ghost@example.com").
		Return("If the email exists, a reset link has been sent", nil)
	h := NewAuthHandler(svc, nil)
	body := []byte(`{"email":"ghost@example.com"}`)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/request-password-reset", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.RequestPasswordReset(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestResetPassword_BadToken(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("ResetPassword", mock.Anything, mock.Anything).Return("", domain.ErrUnauthorized)
	h := NewAuthHandler(svc, nil)
	body, _ := json.Marshal(identity.ResetPasswordRequest{Token: "stale-token", NewPassword: "new-secret-1"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/reset-password", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- Google login tests ---

func TestGoogleLogin_NotConfigured(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAuthHandler(svc, nil)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/google", bytes.NewBufferString(`{"id_token":"x"}`))
	rr := httptest.NewRecorder()
	h.GoogleLogin(rr, r)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGoogleLogin_InvalidIDToken(t *testing.T) {
	svc := &mockIdentitySvc{}
	verifier := &mockGoogleVerifier{}
	verifier.On("Verify", mock.Anything, "bad-token").Return(nil, domain.ErrUnauthorized)
	h := NewAuthHandler(svc, verifier)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/google", bytes.NewBufferString(`{"id_token":"bad-token"}`))
	rr := httptest.NewRecorder()
	h.GoogleLogin(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	verifier.AssertExpectations(t)
}

func TestGoogleLogin_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	verifier := &mockGoogleVerifier{}
	verifier.On("Verify", mock.Anything, "good-token").
		Return(&google.Profile{Sub: "sub-1", Email: "alice@example.com", Name: "Alice"}, nil)
	svc.On("FederatedLogin", mock.Anything, identity.Profile{ID: "sub-1", Email: "alice@example.com", Name: "Alice"}).
		Return("access-token", nil)
	h := NewAuthHandler(svc, verifier)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/google", bytes.NewBufferString(`{"id_token":"good-token"}`))
	rr := httptest.NewRecorder()
	h.GoogleLogin(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp TokenEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	svc.AssertExpectations(t)
	verifier.AssertExpectations(t)
}

// --- account endpoint tests ---

func TestMe_MissingClaims(t *testing.T) {
	svc := &mockIdentitySvc{}
	h := NewAccountHandler(svc)
	r := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, r) // called directly, no claims in context
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsOwnAccount(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockIdentitySvc{}
	a := &domain.Account{AccountID: "acc1", Email: "alice@example.com", Role: domain.RoleUser}
	svc.On("Get", mock.Anything, "acc1").Return(a, nil)
	h := NewAccountHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/accounts/me", "acc1", "alice@example.com", domain.RoleUser, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Me), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.Account
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "acc1", resp.AccountID)
	assert.Equal(t, "alice@example.com", resp.Email)
	svc.AssertExpectations(t)
}

func TestList_ReturnsPage(t *testing.T) {
	svc := &mockIdentitySvc{}
	accounts := []domain.Account{
		{AccountID: "acc1", Email: "alice@example.com"},
		{AccountID: "acc2", Email: "bob@example.com"},
	}
	svc.On("List", mock.Anything, 10, "").Return(accounts, "next-cur", nil)
	h := NewAccountHandler(svc)

	r := httptest.NewRequest(http.MethodGet, "/v1/accounts?limit=10", nil)
	rr := httptest.NewRecorder()
	h.List(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PaginatedAccountsEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "next-cur", resp.NextCursor)
	svc.AssertExpectations(t)
}
