package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/handlers"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

// GateSet holds the configured gates routes are composed from.
// OwnerOnly and AdminOrOwner carry no dependencies and are built in place.
type GateSet struct {
	ResolveProject          authz.Gate
	AuthenticateOwner       authz.Gate
	AuthenticateProjectUser authz.Gate
}

type RouterConfig struct {
	AuthHandler        *handlers.AuthHandler
	ProjectUserHandler *handlers.ProjectUserHandler
	ProjectHandler     *handlers.ProjectHandler
	AdminHandler       *handlers.AdminHandler
	HealthHandler      *handlers.HealthHandler
	Gates              GateSet
	Log                zerolog.Logger
	Secure             func(http.Handler) http.Handler
	CORS               func(http.Handler) http.Handler
	// RateLimit is keyed by client IP; ProjectRateLimit by API key and sits
	// only in front of ResolveProject.
	RateLimit        func(http.Handler) http.Handler
	ProjectRateLimit func(http.Handler) http.Handler
	Metrics            bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	g := cfg.Gates
	gates := func(gs ...authz.Gate) func(http.Handler) http.Handler {
		return middleware.Gates(cfg.Log, gs...)
	}

	byIP := orPassthrough(cfg.RateLimit)
	byKey := orPassthrough(cfg.ProjectRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimid.AllowContentType("application/json"))

		r.Route("/auth", func(r chi.Router) {
			h := cfg.AuthHandler
			r.Use(byIP)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Get("/verify-email/{token}", h.VerifyEmail)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/resend-otp", h.ResendOTP)
			r.With(gates(g.AuthenticateOwner)).Post("/logout", h.Logout)
			r.With(gates(g.AuthenticateOwner)).Get("/profile", h.Profile)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(byIP, gates(g.AuthenticateOwner))
			r.Post("/create", cfg.ProjectHandler.Create)
			r.Get("/", cfg.ProjectHandler.List)
		})

		r.Route("/project-users", func(r chi.Router) {
			h := cfg.ProjectUserHandler
			r.With(byIP).Get("/verify-email/{token}", h.VerifyEmail)
			r.With(byIP, gates(g.AuthenticateProjectUser)).Get("/profile", h.Profile)
			r.Group(func(r chi.Router) {
				r.Use(byKey, gates(g.ResolveProject))
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
				r.Post("/verify-otp", h.VerifyOTP)
				r.Post("/resend-otp", h.ResendOTP)
			})
		})

		r.Route("/admin/users", func(r chi.Router) {
			h := cfg.AdminHandler
			r.Use(byKey, gates(g.AuthenticateOwner, g.ResolveProject))
			r.With(gates(authz.AdminOrOwner{})).Get("/", h.ListUsers)
			r.With(gates(authz.OwnerOnly{})).Patch("/{userId}/role", h.UpdateRole)
			r.With(gates(authz.OwnerOnly{})).Delete("/{userId}", h.DeleteUser)
		})

		r.With(byKey, gates(g.ResolveProject, g.AuthenticateOwner, authz.OwnerOnly{})).Post("/rotate-key", cfg.ProjectHandler.RotateKey)
		r.With(byKey, gates(g.ResolveProject)).Get("/project-data", cfg.ProjectHandler.ProjectData)
	})

	return r
}

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw != nil {
		return mw
	}
	return func(next http.Handler) http.Handler { return next }
}

// loggerMiddleware logs the matched route pattern rather than the path so
// verification tokens never reach the logs.
func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", chimid.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", chi.RouteContext(r.Context()).RoutePattern()).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
