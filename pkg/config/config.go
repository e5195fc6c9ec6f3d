// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Token issuance
	Issuer          string
	Audience        string // access token audience
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration
	SigningKeyFile  string // PEM-encoded RSA private key; empty -> ephemeral dev key

	// OAuth client registry (YAML file)
	ClientsFile string

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:             env("TENAUTH_ENV", "dev"),
		HTTPAddr:        env("TENAUTH_HTTP_ADDR", ":8080"),
		Issuer:          env("OIDC_ISSUER", "http://localhost:8080"),
		Audience:        env("OIDC_AUDIENCE", "tenauth-api"),
		AccessTokenTTL:  envDur("ACCESS_TOKEN_TTL_SEC", 1800) * time.Second,
		RefreshTokenTTL: envDur("REFRESH_TOKEN_TTL_SEC", 14*24*3600) * time.Second,
		AuthCodeTTL:     envDur("AUTH_CODE_TTL_SEC", 300) * time.Second,
		SigningKeyFile:  env("SIGNING_KEY_FILE", ""),
		ClientsFile:     env("CLIENTS_FILE", ""),
		RedisURL:        env("REDIS_URL", ""),
		DatabaseURL:     env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory stores for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
