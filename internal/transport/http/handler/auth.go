package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-identity-nosql/internal/application/identity"
	"github.com/go-identity-nosql/internal/infrastructure/google"
	"github.com/go-identity-nosql/internal/pkg/validate"
)

// GoogleVerifier is the slice of the Google ID-token verifier the handler
// needs. nil means federated login is not configured.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Profile, error)
}

// AuthHandler handles registration, login, OTP verification, password reset,
// and federated login endpoints.
type AuthHandler struct {
	svc      identity.Service
	verifier GoogleVerifier
}

func NewAuthHandler(svc identity.Service, verifier GoogleVerifier) *AuthHandler {
	return &AuthHandler{svc: svc, verifier: verifier}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: msg})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req identity.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{AccessToken: token})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req identity.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

// VerifyEmail is the link-friendly GET variant of OTP verification, fed by
// query parameters instead of a JSON body.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	req := identity.VerifyOTPRequest{
		Email: r.URL.Query().Get("email"),
		OTP:   r.URL.Query().Get("otp"),
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req identity.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.ResetPassword(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

// GoogleLogin exchanges a verified Google ID token for an access token.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "google login is not configured")
		return
	}
	var req struct {
		IDToken string `json:"id_token" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	p, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		httpError(w, err)
		return
	}
	token, err := h.svc.FederatedLogin(r.Context(), identity.Profile{ID: p.Sub, Email: p.Email, Name: p.Name})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{AccessToken: token})
}
