package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Craigslist search parameters
	Site     string
	Area     string
	Category string
	Query    string
	MaxPrice int

	// Fetching
	RenderJS    bool
	MaxRetries  int
	RateLimitMs int

	// Storage
	StoreBackend  string // "file" or "postgres"
	JSONStorePath string
	CSVDir        string
	CSVPrefix     string
	RotationLimit int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Extraction
	DetectWatermarks bool

	// Twilio SMS notification
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	NotifyToNumber   string
	SMSDelayMs       int

	// LLM review stage (optional; off when APIKey is empty)
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Site:     getEnv("CL_SITE", "vancouver"),
		Area:     getEnv("CL_AREA", "van"),
		Category: getEnv("CL_CATEGORY", "sub"),
		Query:    getEnv("CL_QUERY", "may sublet"),
		MaxPrice: getEnvInt("CL_MAX_PRICE", 1200),

		RenderJS:    getEnvBool("FETCH_RENDER_JS", false),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),
		RateLimitMs: getEnvInt("RATE_LIMIT_MS", 2000),

		StoreBackend:  getEnv("STORE_BACKEND", "file"),
		JSONStorePath: getEnv("JSON_STORE_PATH", "./data/listings_database.json"),
		CSVDir:        getEnv("CSV_DIR", "./data"),
		CSVPrefix:     getEnv("CSV_PREFIX", "craigslist_listings"),
		RotationLimit: getEnvInt("ROTATION_LIMIT", 300),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "sublet_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		DetectWatermarks: getEnvBool("DETECT_WATERMARKS", false),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		NotifyToNumber:   getEnv("MY_PHONE_NUMBER", ""),
		SMSDelayMs:       getEnvInt("SMS_DELAY_MS", 1000),

		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_API_BASE", ""),
		LLMModel:   getEnv("LLM_MODEL_NAME", "gpt-3.5-turbo"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// NotifyEnabled reports whether Twilio credentials are fully configured.
func (c *Config) NotifyEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioFromNumber != "" && c.NotifyToNumber != ""
}

// ReviewEnabled reports whether the LLM review stage is configured.
func (c *Config) ReviewEnabled() bool {
	return c.LLMAPIKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
