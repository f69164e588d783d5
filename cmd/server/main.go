package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basisboard/basisboard/internal/api"
	"github.com/basisboard/basisboard/internal/auth"
	"github.com/basisboard/basisboard/internal/config"
	"github.com/basisboard/basisboard/internal/database"
	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/provider/local"
	"github.com/basisboard/basisboard/internal/provider/rest"
	"github.com/basisboard/basisboard/internal/resource"
	"github.com/basisboard/basisboard/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	prov, err := buildProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize provider", "provider", cfg.Provider, "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(prov)
	usersService := users.NewService(prov, authService)

	resources := make([]*resource.Service, 0, len(definitions))
	for _, def := range definitions {
		resources = append(resources, resource.NewService(def, prov))
	}

	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		UsersService:   usersService,
		Resources:      resources,
		Version:        cfg.Version,
		ProviderName:   cfg.Provider,
		AllowedOrigins: cfg.ClientURLs,
		LoginRateLimit: cfg.LoginRateLimit,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port, "version", cfg.Version, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// definitions lists the CRUD entities the API serves. Cities get a
// server-assigned random weight on creation when the client supplies none.
var definitions = []resource.Definition{
	{Name: "friends", Required: []string{"name"}},
	{Name: "students", Required: []string{"name"}},
	{Name: "cities", Required: []string{"name"}, OnCreate: func(row provider.Row) {
		if _, ok := row["weight"]; !ok {
			row["weight"] = rand.IntN(100) + 1
		}
	}},
}

// buildProvider constructs the configured identity/table backend.
func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	registry := provider.NewRegistry()

	registry.Register("rest", func(_ context.Context) (provider.Provider, error) {
		if cfg.ProviderURL == "" {
			return nil, errors.New("PROVIDER_URL is required for the rest provider")
		}
		return rest.New(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderServiceKey), nil
	})

	registry.Register("local", func(ctx context.Context) (provider.Provider, error) {
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the local provider")
		}
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET is required for the local provider")
		}

		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		p := local.New(pool, local.Config{
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   time.Duration(cfg.TokenTTLMinutes) * time.Minute,
			BcryptCost: cfg.BcryptCost,
		})

		if cfg.BootstrapEmail != "" && cfg.BootstrapPassword != "" {
			created, err := p.Bootstrap(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword)
			if err != nil {
				return nil, fmt.Errorf("bootstrapping admin: %w", err)
			}
			if created {
				slog.Info("bootstrap admin created", "email", cfg.BootstrapEmail)
			}
		}

		return p, nil
	})

	return registry.Build(ctx, cfg.Provider)
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
