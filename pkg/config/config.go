package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	GoogleClientID   string

	// Static key every client sends as x-api-key
	APIKey         string
	AllowedOrigins []string

	// Scoring
	Analyzer            string // "upstream" or "ai"
	ScoreAPIBaseURL     string
	ScoreAPIKey         string
	AIProvider          string
	GeminiApiKey        string
	OllamaBaseURL       string
	OllamaModel         string
	AllowedProductHosts []string
	ProductScoreTTL     time.Duration
	PageFetchTimeout    time.Duration

	// Similar products
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// History
	HistoryCacheTTL    time.Duration
	HistoryFanoutLimit int
	RedisAddr          string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	analyzer := getEnv("ANALYZER", "")
	if analyzer == "" {
		if os.Getenv("SCORE_API_BASE_URL") != "" {
			analyzer = "upstream"
		} else {
			analyzer = "ai"
		}
	}

	return &Config{
		Port:    getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "dev"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "sustainly"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour), // 7 days
		GoogleClientID:   getEnv("GOOGLE_CLIENT_ID", ""),

		APIKey:         getEnv("API_KEY", ""),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),

		Analyzer:            analyzer,
		ScoreAPIBaseURL:     strings.TrimRight(getEnv("SCORE_API_BASE_URL", ""), "/"),
		ScoreAPIKey:         getEnv("SCORE_API_KEY", ""),
		AIProvider:          getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:        getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3"),
		AllowedProductHosts: getList("ALLOWED_PRODUCT_HOSTS", []string{"amazon.com"}),
		ProductScoreTTL:     getDuration("PRODUCT_SCORE_TTL", 24*time.Hour),
		PageFetchTimeout:    getDuration("PAGE_FETCH_TIMEOUT", 10*time.Second),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		HistoryCacheTTL:    getDuration("HISTORY_CACHE_TTL", 5*time.Minute),
		HistoryFanoutLimit: getInt("HISTORY_FANOUT_LIMIT", 8),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getList reads a comma separated list, dropping empty entries.
func getList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
