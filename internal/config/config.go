package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration values.
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	SecureCookies bool
	AI            AIConfig
	Weather       WeatherConfig
	Media         MediaConfig
}

// AIConfig selects the text generation provider and its credentials.
type AIConfig struct {
	Provider    string
	APIKey      string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// WeatherConfig configures the weather lookup used for recommendations.
type WeatherConfig struct {
	APIKey   string
	CacheTTL time.Duration
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	PublicURL      string
	KeyPrefix      string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	LocalDir       string
	LocalBaseURL   string
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() Config {
	cfg := Config{
		Port:          getenv("APP_PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SecureCookies: getenvBool("SECURE_COOKIES", false),
		AI: AIConfig{
			Provider:    strings.ToLower(getenv("AI_PROVIDER", "gemini")),
			APIKey:      os.Getenv("AI_API_KEY"),
			Model:       os.Getenv("AI_MODEL"),
			VisionModel: os.Getenv("AI_VISION_MODEL"),
			Timeout:     getenvMinutes("AI_TIMEOUT_MINUTES", 2*time.Minute),
		},
		Weather: WeatherConfig{
			APIKey:   os.Getenv("WEATHER_API_KEY"),
			CacheTTL: getenvMinutes("WEATHER_CACHE_MINUTES", 10*time.Minute),
		},
		Media: MediaConfig{
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         os.Getenv("S3_REGION"),
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicURL:      os.Getenv("S3_PUBLIC_URL"),
			KeyPrefix:      strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
			LocalDir:       os.Getenv("MEDIA_LOCAL_DIR"),
			LocalBaseURL:   os.Getenv("MEDIA_LOCAL_BASE_URL"),
		},
	}

	if cfg.Port == "" {
		log.Fatal("APP_PORT cannot be empty")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvMinutes(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	minutes, err := strconv.Atoi(val)
	if err != nil || minutes < 0 {
		return fallback
	}

	return time.Duration(minutes) * time.Minute
}
