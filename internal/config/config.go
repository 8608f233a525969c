package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`

	// Discord OAuth2; the web API is disabled without a client.
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:3000/api/auth/callback"`

	// Database; play history is disabled when empty.
	DatabaseURL string `env:"DATABASE_URL"`

	// Audio node
	LavalinkHost     string        `env:"LAVALINK_HOST" envDefault:"127.0.0.1"`
	LavalinkPort     int           `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword string        `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool          `env:"LAVALINK_SECURE" envDefault:"false"`
	SearchPrefix     string        `env:"SEARCH_PREFIX" envDefault:"scsearch"`
	JoinTimeout      time.Duration `env:"JOIN_TIMEOUT" envDefault:"10s"`

	// Web Server
	WebBind      string `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`
	WebUIBaseURL string

	// Session
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-only-change-me"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.JoinTimeout <= 0 {
		return nil, fmt.Errorf("JOIN_TIMEOUT must be positive")
	}

	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)
	return &cfg, nil
}

// APIEnabled reports whether OAuth2 credentials for the web API are set.
func (c *Config) APIEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
