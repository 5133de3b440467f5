package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultSecretKey = "dev-secret-key"

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Extraction backend
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float64
	OpenAIMaxTokens   int
	OpenAIRateLimit   float64

	// Booking portal
	MomentusBaseURL  string
	SharePointURL    string
	MomentusUsername string
	MomentusPassword string
	Timezone         string

	// Browser
	BrowserHeadless   bool
	BrowserTimeout    time.Duration
	SubmitWait        time.Duration
	CheckpointTimeout time.Duration

	// Server
	HTTPPort  int
	Debug     bool
	SecretKey string
	LogLevel  string
	AppEnv    string

	// Storage
	DBPath      string
	HistoryFile string
	RedisURL    string
	CacheTTL    time.Duration

	// Notifications
	ResendAPIKey string
	EmailFrom    string
	NotifyEmail  string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnvOrDefault("OPENAI_MODEL", "gpt-4"),
		OpenAITemperature: getEnvAsFloatOrDefault("OPENAI_TEMPERATURE", 0.1),
		OpenAIMaxTokens:   getEnvAsIntOrDefault("OPENAI_MAX_TOKENS", 500),
		OpenAIRateLimit:   getEnvAsFloatOrDefault("OPENAI_RATE_LIMIT", 3),

		MomentusBaseURL:  getEnvOrDefault("MOMENTUS_BASE_URL", "https://utexas.momentus.io/"),
		SharePointURL:    os.Getenv("SHAREPOINT_URL"),
		MomentusUsername: os.Getenv("MOMENTUS_USERNAME"),
		MomentusPassword: os.Getenv("MOMENTUS_PASSWORD"),
		Timezone:         getEnvOrDefault("BOOKING_TIMEZONE", "America/Chicago"),

		BrowserHeadless:   getEnvAsBoolOrDefault("BROWSER_HEADLESS", true),
		BrowserTimeout:    time.Duration(getEnvAsIntOrDefault("BROWSER_TIMEOUT_MS", 15000)) * time.Millisecond,
		SubmitWait:        time.Duration(getEnvAsIntOrDefault("SUBMIT_WAIT_MS", 3000)) * time.Millisecond,
		CheckpointTimeout: time.Duration(getEnvAsIntOrDefault("CHECKPOINT_TIMEOUT_SECONDS", 300)) * time.Second,

		HTTPPort:  getEnvAsIntOrDefault("PORT", 5000),
		Debug:     getEnvAsBoolOrDefault("DEBUG", false),
		SecretKey: getEnvOrDefault("SECRET_KEY", defaultSecretKey),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		AppEnv:    getEnvOrDefault("APP_ENV", "development"),

		DBPath:      getEnvOrDefault("BOOKING_DB_PATH", "./booking.db"),
		HistoryFile: getEnvOrDefault("BOOKING_HISTORY_FILE", "booking_history.json"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CacheTTL:    time.Duration(getEnvAsIntOrDefault("CACHE_TTL_HOURS", 24)) * time.Hour,

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnvOrDefault("EMAIL_FROM", "Room Booking <bookings@resend.dev>"),
		NotifyEmail:  os.Getenv("NOTIFY_EMAIL"),
	}

	return cfg
}

// Validate reports configuration problems that degrade the agent. None of
// them are fatal: a missing API key only disables extraction.
func (c *Config) Validate() []string {
	var problems []string
	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY environment variable is required")
	}
	if c.SecretKey == defaultSecretKey {
		problems = append(problems, "SECRET_KEY should be set to a secure value in production")
	}
	return problems
}

// EntryURL is where a booking run starts: the SharePoint site when set,
// the portal itself otherwise.
func (c *Config) EntryURL() string {
	if c.SharePointURL != "" {
		return c.SharePointURL
	}
	return c.MomentusBaseURL
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
