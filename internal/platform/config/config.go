package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	IdentitySecret     string
	Environment        string
	DataDir            string
	MediaBaseURL       string
	SessionFile        string
	EmailFrom          string
	EmailEnabled       bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	PushEndpoint       string
	PushServerKey      string
	LegacyBridgeURL    string
	SeedAdminEmail     string
	SeedAdminKGID      string
	SeedAdminName      string
	SeedAdminPIN       string
	RunMigrations      bool
	RunSeed            bool
	SyncInterval       time.Duration
	OTPCleanupInterval time.Duration
}

func Load() Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		IdentitySecret:     getEnv("IDENTITY_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		DataDir:            getEnv("DATA_DIR", "data"),
		MediaBaseURL:       getEnv("MEDIA_BASE_URL", "/media"),
		SessionFile:        getEnv("SESSION_FILE", "data/session.json"),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		PushEndpoint:       getEnv("PUSH_ENDPOINT", ""),
		PushServerKey:      getEnv("PUSH_SERVER_KEY", ""),
		LegacyBridgeURL:    getEnv("LEGACY_BRIDGE_URL", ""),
		SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminKGID:      getEnv("SEED_ADMIN_KGID", ""),
		SeedAdminName:      getEnv("SEED_ADMIN_NAME", "Administrator"),
		SeedAdminPIN:       getEnv("SEED_ADMIN_PIN", ""),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", true),
		SyncInterval:       getEnvDuration("SYNC_INTERVAL", 0),
		OTPCleanupInterval: getEnvDuration("OTP_CLEANUP_INTERVAL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPIN) == "" {
			return fmt.Errorf("SEED_ADMIN_PIN must be set or RUN_SEED disabled in production")
		}
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
