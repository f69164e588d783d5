package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/basisboard/basisboard/internal/api/handler"
	"github.com/basisboard/basisboard/internal/api/middleware"
	"github.com/basisboard/basisboard/internal/api/response"
	"github.com/basisboard/basisboard/internal/auth"
	"github.com/basisboard/basisboard/internal/resource"
	"github.com/basisboard/basisboard/internal/users"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	AuthService    *auth.Service
	UsersService   *users.Service
	Resources      []*resource.Service
	Version        string
	ProviderName   string
	AllowedOrigins []string
	LoginRateLimit int
}

// NewRouter creates and configures a chi router with all middleware and
// routes. Read endpoints are public; creation requires authentication;
// updates, deletions and user management require the admin role.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(secure.New(secure.Options{
		ContentTypeNosniff: true,
		FrameDeny:          true,
	}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Err(w, http.StatusNotFound, "route "+req.Method+" "+req.URL.Path+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.Err(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	authRequired := middleware.Auth(deps.AuthService, "/api/health")
	adminOnly := middleware.RequireAdmin()

	loginLimit := deps.LoginRateLimit
	if loginLimit <= 0 {
		loginLimit = 10
	}

	authHandler := handler.NewAuthHandler(deps.AuthService)
	healthHandler := handler.NewHealthHandler(deps.Version, deps.ProviderName)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.ServeHTTP)

		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(loginLimit, time.Minute)).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(authRequired).Get("/session", authHandler.Session)
		})

		if deps.UsersService != nil {
			userHandler := handler.NewUserHandler(deps.UsersService)
			r.Route("/users", func(r chi.Router) {
				r.Use(authRequired)
				r.Use(adminOnly)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})
		}

		for _, svc := range deps.Resources {
			resourceHandler := handler.NewResourceHandler(svc)
			r.Route("/"+svc.Definition().Name, func(r chi.Router) {
				r.Get("/", resourceHandler.List)
				r.With(authRequired).Post("/", resourceHandler.Create)
				r.With(authRequired, adminOnly).Put("/{id}", resourceHandler.Update)
				r.With(authRequired, adminOnly).Delete("/{id}", resourceHandler.Delete)
			})
		}
	})

	return r
}
