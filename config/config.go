package config

import (
	"fmt"
	"os"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	// Server
	Port        string
	Environment string

	// Storage of finished renders and job scratch space
	MediaRoot string
	WorkRoot  string

	// Persistence: "memory" or "supabase"
	StoreBackend string
	SupabaseURL  string
	SupabaseKey  string

	// AI providers
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	GeminiTextModel  string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAITTSModel   string
	OpenAITTSVoice   string

	// YouTube publish leg
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string

	// Worker pool
	WorkerCount  int
	JobQueueSize int

	// Pipeline profile file (stage timeouts, retry policy)
	PipelineProfile string
}

// Load reads configuration from the environment with development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MediaRoot: getEnv("MEDIA_ROOT", "./data/media"),
		WorkRoot:  getEnv("WORK_ROOT", "./data/work"),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		SupabaseURL:  getEnv("SUPABASE_URL", ""),
		SupabaseKey:  getEnv("SUPABASE_SERVICE_KEY", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITTSModel:   getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:   getEnv("OPENAI_TTS_VOICE", "onyx"),

		YouTubeClientID:     getEnv("YOUTUBE_CLIENT_ID", ""),
		YouTubeClientSecret: getEnv("YOUTUBE_CLIENT_SECRET", ""),
		YouTubeRefreshToken: getEnv("YOUTUBE_REFRESH_TOKEN", ""),

		WorkerCount:  getEnvInt("WORKER_COUNT", 4),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),

		PipelineProfile: getEnv("PIPELINE_PROFILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.StoreBackend != "memory" && c.StoreBackend != "supabase" {
		return fmt.Errorf("STORE_BACKEND must be 'memory' or 'supabase', got %q", c.StoreBackend)
	}
	if c.StoreBackend == "supabase" {
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when STORE_BACKEND=supabase")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORE_BACKEND=supabase")
		}
	}
	if c.Environment == "production" {
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required in production")
		}
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
