package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	// Provider selects the identity/table backend: "rest" talks to a hosted
	// BaaS over HTTP, "local" runs against a Postgres database directly.
	Provider           string `envconfig:"PROVIDER" default:"rest"`
	ProviderURL        string `envconfig:"PROVIDER_URL" default:""`
	ProviderAPIKey     string `envconfig:"PROVIDER_API_KEY" default:""`
	ProviderServiceKey string `envconfig:"PROVIDER_SERVICE_KEY" default:""`

	// Local provider settings.
	DatabaseURL       string `envconfig:"DATABASE_URL" default:""`
	JWTSecret         string `envconfig:"JWT_SECRET" default:""`
	TokenTTLMinutes   int    `envconfig:"TOKEN_TTL_MINUTES" default:"60"`
	BcryptCost        int    `envconfig:"BCRYPT_COST" default:"12"`
	BootstrapEmail    string `envconfig:"BOOTSTRAP_EMAIL" default:""`
	BootstrapPassword string `envconfig:"BOOTSTRAP_PASSWORD" default:""`

	// ClientURLs is the comma-separated list of origins allowed by CORS.
	ClientURLs []string `envconfig:"CLIENT_URLS" default:""`

	// LoginRateLimit caps login attempts per client IP per minute.
	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
