package handler

import (
	"net/http"
	"strconv"

	"github.com/go-identity-nosql/internal/application/identity"
	"github.com/go-identity-nosql/internal/transport/http/middleware"
)

// AccountHandler handles the authenticated account endpoints.
type AccountHandler struct {
	svc identity.Service
}

func NewAccountHandler(svc identity.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Me returns the profile of the authenticated account (token subject).
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.svc.Get(r.Context(), claims.Subject)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// List returns a page of accounts. Admin-only.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")
	accounts, next, err := h.svc.List(r.Context(), limit, cursor)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedAccountsEnvelope{Data: accounts, NextCursor: next})
}
