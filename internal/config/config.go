package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const defaultJWTSecret = "change-me"

// Config holds application level configuration. It is built once by Load and
// shared read-only by every component afterwards.
type Config struct {
	ServerPort  string
	Development bool

	DBDriver string
	DBDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret         string
	ActionTokenSecret string
	SessionTTL        time.Duration
	BcryptCost        int

	VerifyTokenTTL       time.Duration
	ResetTokenTTL        time.Duration
	ActionResendCooldown time.Duration

	CookieSecure   bool
	CookieSameSite http.SameSite
	CookieDomain   string

	ClientURL   string
	CORSOrigins []string
	RateLimit   string

	LogLevel  string
	LogPretty bool
}

// Load builds Config from environment (and an optional CONFIG_FILE) with sensible defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("DEVELOPMENT", false)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DSN", "user:password@tcp(localhost:3306)/authkit?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TTL", 30*24*time.Hour)
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("VERIFY_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("RESET_TOKEN_TTL", time.Hour)
	v.SetDefault("ACTION_RESEND_COOLDOWN", time.Minute)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_SAMESITE", "none")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT", "20-M")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	sameSite, err := parseSameSite(v.GetString("COOKIE_SAMESITE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:           v.GetString("SERVER_PORT"),
		Development:          v.GetBool("DEVELOPMENT"),
		DBDriver:             v.GetString("DB_DRIVER"),
		DBDSN:                v.GetString("DB_DSN"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisDB:              v.GetInt("REDIS_DB"),
		RedisPass:            v.GetString("REDIS_PASSWORD"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		ActionTokenSecret:    v.GetString("ACTION_TOKEN_SECRET"),
		SessionTTL:           v.GetDuration("SESSION_TTL"),
		BcryptCost:           v.GetInt("BCRYPT_COST"),
		VerifyTokenTTL:       v.GetDuration("VERIFY_TOKEN_TTL"),
		ResetTokenTTL:        v.GetDuration("RESET_TOKEN_TTL"),
		ActionResendCooldown: v.GetDuration("ACTION_RESEND_COOLDOWN"),
		CookieSecure:         v.GetBool("COOKIE_SECURE"),
		CookieSameSite:       sameSite,
		CookieDomain:         v.GetString("COOKIE_DOMAIN"),
		ClientURL:            strings.TrimRight(v.GetString("CLIENT_URL"), "/"),
		CORSOrigins:          splitList(v.GetString("CORS_ORIGINS")),
		RateLimit:            v.GetString("RATE_LIMIT"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogPretty:            v.GetBool("LOG_PRETTY"),
	}
	if cfg.ActionTokenSecret == "" {
		cfg.ActionTokenSecret = cfg.JWTSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTSecret == defaultJWTSecret && !c.Development {
		return fmt.Errorf("JWT_SECRET must be changed outside development")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionTTL <= 0 || c.VerifyTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if c.CookieSameSite == http.SameSiteNoneMode && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("invalid COOKIE_SAMESITE %q", v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
