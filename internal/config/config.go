package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr        string
	CORSOrigin  string
	PingMessage string
	LogLevel    string
	Timezone    string

	JWTSecret            string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	BcryptCost           int
	// Redis Configuration, sessions stay in memory when empty
	RedisURL string
	// Postgres Configuration, check-ins stay in memory when empty
	DatabaseURL   string
	MigrationsDir string

	GoalTemplateWeeks        int
	GoalTemplatePreCompleted int

	// OpenAI Configuration, the template tutor is used when the key is empty
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// SMTP - empty by default, reminders are only logged if not configured
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	ReminderInterval time.Duration
}

func Load() Config {
	return Config{
		Addr:        getenv("API_ADDR", ":8080"),
		CORSOrigin:  getenv("CORS_ORIGIN", "*"),
		PingMessage: getenv("PING_MESSAGE", "ping"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Timezone:    getenv("TIMEZONE", "UTC"),

		JWTSecret:            getenv("PATHWISE_JWT_SECRET", "pathwise-dev-secret"),
		SessionTTL:           time.Duration(getenvPositiveInt("SESSION_TTL_SECONDS", 604800)) * time.Second,
		SessionSweepInterval: getenvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		BcryptCost:           getenvInt("BCRYPT_COST", 10),
		RedisURL:             getenv("REDIS_URL", ""),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		MigrationsDir:        getenv("MIGRATIONS_DIR", "./db/migrations"),

		GoalTemplateWeeks:        getenvInt("GOAL_TEMPLATE_WEEKS", 8),
		GoalTemplatePreCompleted: getenvInt("GOAL_TEMPLATE_PRECOMPLETED", 2),

		OpenAIAPIKey:  getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),

		SMTPHost:         getenv("SMTP_HOST", ""),
		SMTPPort:         getenv("SMTP_PORT", "587"),
		SMTPUsername:     getenv("SMTP_USERNAME", ""),
		SMTPPassword:     getenv("SMTP_PASSWORD", ""),
		SMTPFrom:         getenv("SMTP_FROM", ""),
		SMTPFromName:     getenv("SMTP_FROM_NAME", "Pathwise"),
		ReminderInterval: getenvDuration("REMINDER_INTERVAL", time.Minute),
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
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

// getenvPositiveInt is getenvInt that also falls back for zero or negative values.
func getenvPositiveInt(key string, fallback int) int {
	parsed := getenvInt(key, fallback)
	if parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
