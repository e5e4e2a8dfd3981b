package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	GeminiAPIKey           string `env:"GEMINI_API_KEY"`
	GeminiChatModel        string `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiAnalysisModel    string `env:"GEMINI_ANALYSIS_MODEL" envDefault:"gemini-1.5-pro"`
	AdminEmail             string `env:"ADMIN_EMAIL" envDefault:"admin@system.local"`
	AdminPasswordHash      string `env:"ADMIN_PASSWORD_HASH"`
	AuthSessionSecret      string `env:"AUTH_SESSION_SECRET"`
	QRSessionTTLSeconds    int    `env:"QR_SESSION_TTL_SECONDS" envDefault:"60"`
	AIResponseDelayMillis  int    `env:"AI_RESPONSE_DELAY_MS" envDefault:"1500"`
	MaxConnectionsPerOwner int    `env:"MAX_CONNECTIONS_PER_OWNER" envDefault:"10"`
	MaxSessionReissues     int    `env:"MAX_SESSION_REISSUES" envDefault:"3"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) QRSessionTTL() time.Duration {
	return time.Duration(c.QRSessionTTLSeconds) * time.Second
}

func (c *Config) AIResponseDelay() time.Duration {
	return time.Duration(c.AIResponseDelayMillis) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("AUTH_SESSION_SECRET", c.AuthSessionSecret); err != nil {
			return err
		}
		if c.GeminiAPIKey == "" {
			log.Warn().Msg("GEMINI_API_KEY is empty in production: AI replies, extraction and insights are disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
