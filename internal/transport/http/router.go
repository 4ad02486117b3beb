package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-identity-nosql/internal/application/identity"
	"github.com/go-identity-nosql/internal/config"
	"github.com/go-identity-nosql/internal/domain"
	"github.com/go-identity-nosql/internal/infrastructure/dynamo"
	googleinfra "github.com/go-identity-nosql/internal/infrastructure/google"
	jwtinfra "github.com/go-identity-nosql/internal/infrastructure/jwt"
	"github.com/go-identity-nosql/internal/infrastructure/notify"
	"github.com/go-identity-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-identity-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo    *dynamo.AccountRepo
	CredentialRepo *dynamo.CredentialRepo
	ResetRepo      *dynamo.ResetRepo
	JWTProvider    *jwtinfra.Provider
	Sink           notify.Sink
	GoogleVerifier *googleinfra.Verifier
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	identitySvc := identity.NewService(identity.ServiceDeps{
		AccountRepo:    deps.AccountRepo,
		CredentialRepo: deps.CredentialRepo,
		ResetRepo:      deps.ResetRepo,
		Signer:         deps.JWTProvider,
		Sink:           deps.Sink,
		OTPExpiry:      cfg.OTPExpiry,
		ResetExpiry:    cfg.ResetTokenExpiry,
		ResetLinkBase:  cfg.ResetLinkBase,
	})

	// Avoid handing the handler a typed nil when Google login is not configured.
	var verifier handler.GoogleVerifier
	if deps.GoogleVerifier != nil {
		verifier = deps.GoogleVerifier
	}

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(identitySvc, verifier)
	accountH := handler.NewAccountHandler(identitySvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Get("/auth/verify-email", authH.VerifyEmail)
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/verify-otp", authH.VerifyOTP)
			r.Post("/auth/request-password-reset", authH.RequestPasswordReset)
			r.Post("/auth/reset-password", authH.ResetPassword)
			r.Post("/auth/google", authH.GoogleLogin)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/accounts/me", accountH.Me)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
				r.Get("/accounts", accountH.List)
			})
		})
	})

	return r
}
