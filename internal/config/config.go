// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultTokenTTL   = 24 * time.Hour
	defaultUploadDir  = "uploads"
	defaultRateLimit  = 100
	defaultRateWindow = 15 * time.Minute
	defaultMFAIssuer  = "LaundryHub"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"`
	UploadDir   string        `env:"UPLOAD_DIR"`
	// Число запросов с одного клиента за RateWindow.
	RateLimit  int           `env:"RATE_LIMIT"`
	RateWindow time.Duration `env:"RATE_WINDOW"`
	// Сервис стоит за обратным прокси: клиент определяется по X-Forwarded-For.
	TrustProxy bool   `env:"TRUST_PROXY"`
	MFAIssuer  string `env:"MFA_ISSUER"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage if empty")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")
	flag.DurationVar(&cfg.TokenTTL, "t", defaultTokenTTL, "access token lifetime")
	flag.StringVar(&cfg.UploadDir, "u", defaultUploadDir, "directory for uploaded images")
	flag.IntVar(&cfg.RateLimit, "l", defaultRateLimit, "requests per client per rate window")
	flag.DurationVar(&cfg.RateWindow, "w", defaultRateWindow, "rate limit window")
	flag.BoolVar(&cfg.TrustProxy, "p", false, "trust X-Forwarded-For from a reverse proxy")
	flag.StringVar(&cfg.MFAIssuer, "i", defaultMFAIssuer, "issuer shown in authenticator apps")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.JWTSecret != "" {
		cfg.JWTSecret = fromEnv.JWTSecret
	}
	if fromEnv.TokenTTL != 0 {
		cfg.TokenTTL = fromEnv.TokenTTL
	}
	if fromEnv.UploadDir != "" {
		cfg.UploadDir = fromEnv.UploadDir
	}
	if fromEnv.RateLimit != 0 {
		cfg.RateLimit = fromEnv.RateLimit
	}
	if fromEnv.RateWindow != 0 {
		cfg.RateWindow = fromEnv.RateWindow
	}
	if fromEnv.TrustProxy {
		cfg.TrustProxy = true
	}
	if fromEnv.MFAIssuer != "" {
		cfg.MFAIssuer = fromEnv.MFAIssuer
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d per %s", cfg.RateLimit, cfg.RateWindow)
	}

	return cfg, nil
}
