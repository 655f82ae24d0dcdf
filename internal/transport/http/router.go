package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/saas-starter-api/internal/application/auth"
	fileapp "github.com/saas-starter-api/internal/application/file"
	"github.com/saas-starter-api/internal/application/session"
	"github.com/saas-starter-api/internal/application/signup"
	"github.com/saas-starter-api/internal/application/verify"
	"github.com/saas-starter-api/internal/config"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/transport/http/handler"
	appmiddleware "github.com/saas-starter-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

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

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to endpoints that mint or
	// check one-time codes so a caller cannot brute-force them.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	engine := verify.NewEngine(deps.SecretStore)
	signupSvc := signup.NewService(signup.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		SecretRepo:  deps.SecretStore,
		Verifier:    engine,
		Mailer:      deps.Mailer,
		OTPLength:   cfg.OTPLength,
		OTPTTL:      cfg.OTPExpiry,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		SecretRepo:  deps.SecretStore,
		Verifier:    engine,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		OTPLength:   cfg.OTPLength,
		OTPTTL:      cfg.OTPExpiry,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		AccountRepo:     deps.AccountRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	fileSvc := fileapp.NewService(deps.S3Store, deps.FileRepo)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(signupSvc, deps.AccountRepo)
	sessionH := handler.NewSessionHandler(sessionSvc)
	recoveryH := handler.NewRecoveryHandler(authSvc)
	phoneH := handler.NewPhoneConfirmHandler(authSvc)
	fileH := handler.NewFileHandler(fileSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Signup)
		r.With(sensitiveRL.Limit).Post("/accounts/confirm", accountH.Confirm)
		r.With(sensitiveRL.Limit).Post("/accounts/resend", accountH.Resend)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", recoveryH.Action)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Get("/accounts/{id}", accountH.Get)
			r.Put("/accounts/{id}", accountH.Update)
			r.With(sensitiveRL.Limit).Post("/confirm-phone/{action}", phoneH.Action)
			r.Post("/files", fileH.Upload)
			r.Get("/files/{id}", fileH.Download)
			r.Delete("/files/{id}", fileH.Delete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/accounts", accountH.List)
				r.Delete("/accounts/{id}", accountH.Delete)
			})
		})
	})

	return r
}
