// Package config — node configuration from environment variables and
// optional YAML profiles.
package config

import (
	"os"
	"strconv"
)

// Config holds node configuration.
type Config struct {
	Port        string
	LogLevel    string
	StoreKind   string // "memory" | "sqlite" | "postgres"
	DatabaseURL string // postgres DSN
	SQLitePath  string
	TokenSecret string
	RateRPS     float64
	RateBurst   int
	OTLPEnabled bool
	OTLPTarget  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	storeKind := os.Getenv("STORE_KIND")
	if storeKind == "" {
		storeKind = "memory"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://trustmesh@localhost:5432/trustmesh?sslmode=disable"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "trustmesh.db"
	}

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		// Dev-only default; production nodes must set TOKEN_SECRET.
		secret = "trustmesh-dev-secret"
	}

	rps := 10.0
	if raw := os.Getenv("RATE_RPS"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}
	burst := 20
	if raw := os.Getenv("RATE_BURST"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			burst = parsed
		}
	}

	return &Config{
		Port:        port,
		LogLevel:    logLevel,
		StoreKind:   storeKind,
		DatabaseURL: dbURL,
		SQLitePath:  sqlitePath,
		TokenSecret: secret,
		RateRPS:     rps,
		RateBurst:   burst,
		OTLPEnabled: os.Getenv("OTLP_ENABLED") == "true",
		OTLPTarget:  os.Getenv("OTLP_ENDPOINT"),
	}
}
