package app

import (
	"os"
	"strconv"
	"time"

	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	Issuer string // Issuer claim for tokens (default: authd)

	AccessSecret  string // HS256 secret for access/reset/verify kinds; generated if empty
	RefreshSecret string // HS256 secret for the refresh kind; generated if empty

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7 days)

	DatabaseFile string // Path to SQLite database file (default: ./authd.db)
	PepperFile   string // Path to password-hash pepper file (default: ./pepper)

	AppBaseURL               string // Base URL for links in outbound emails
	RequireEmailVerification bool   // Gate login on a completed verify-email flow
	LoginAlerts              bool   // Send best-effort new-sign-in notifications

	ResendAPIKey string // Resend API key; empty means log-only notifications
	MailFrom     string // From address for outbound mail
	AppName      string // Display name in emails and authenticator apps

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return Config{
		Issuer: getEnvOrDefault("AUTHD_ISSUER", "authd"),

		AccessSecret:  os.Getenv("AUTHD_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTHD_REFRESH_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTHD_ACCESS_TTL", jwtx.DefaultAccessTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTHD_REFRESH_TTL", jwtx.DefaultRefreshTTL),

		DatabaseFile: getEnvOrDefault("AUTHD_DATABASE_FILE", "authd.db"),
		PepperFile:   getEnvOrDefault("AUTHD_PEPPER_FILE", "pepper"),

		AppBaseURL:               getEnvOrDefault("AUTHD_APP_BASE_URL", "http://localhost:8080"),
		RequireEmailVerification: getEnvBoolOrDefault("AUTHD_REQUIRE_EMAIL_VERIFICATION", false),
		LoginAlerts:              getEnvBoolOrDefault("AUTHD_LOGIN_ALERTS", false),

		ResendAPIKey: os.Getenv("AUTHD_RESEND_API_KEY"),
		MailFrom:     getEnvOrDefault("AUTHD_MAIL_FROM", "no-reply@localhost"),
		AppName:      getEnvOrDefault("AUTHD_APP_NAME", "authd"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
