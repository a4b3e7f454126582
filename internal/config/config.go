// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig configures one upstream provider endpoint.
type ProviderConfig struct {
	BaseURL string
	Path    string
	APIKey  string
	Models  []string
}

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Streaming
	StreamTimeout time.Duration

	// Providers
	DefaultProvider string
	OpenAI          ProviderConfig
	GreatWall       ProviderConfig
	ModelScope      ProviderConfig

	// Search
	SearchEnabled    bool
	SearchBaseURL    string
	SearchAPIKey     string
	SearchMaxResults int

	// NATS bridge
	NATSEnabled bool
	NATSURL     string
	NATSCAFile  string
	NATSCert    string
	NATSKey     string
	NATSToken   string

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),

		StreamTimeout: getDurationEnv("STREAM_TIMEOUT", 120*time.Second),

		DefaultProvider: getEnv("DEFAULT_PROVIDER", "openai"),
		OpenAI: ProviderConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
			Path:    getEnv("OPENAI_CHAT_PATH", "/v1/chat/completions"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Models:  getListEnv("OPENAI_MODELS", []string{"gpt-4o", "gpt-4o-mini"}),
		},
		GreatWall: ProviderConfig{
			BaseURL: getEnv("GREATWALL_BASE_URL", ""),
			Path:    getEnv("GREATWALL_CHAT_PATH", "/api/chat/stream"),
			APIKey:  getEnv("GREATWALL_API_KEY", ""),
			Models:  getListEnv("GREATWALL_MODELS", nil),
		},
		ModelScope: ProviderConfig{
			BaseURL: getEnv("MODELSCOPE_BASE_URL", "https://api-inference.modelscope.cn"),
			Path:    getEnv("MODELSCOPE_CHAT_PATH", "/v1/chat/completions"),
			APIKey:  getEnv("MODELSCOPE_API_KEY", ""),
			Models:  getListEnv("MODELSCOPE_MODELS", []string{"Qwen/Qwen2.5-72B-Instruct"}),
		},

		SearchEnabled:    getBoolEnv("SEARCH_ENABLED", false),
		SearchBaseURL:    getEnv("SEARCH_BASE_URL", "https://api.tavily.com"),
		SearchAPIKey:     getEnv("SEARCH_API_KEY", ""),
		SearchMaxResults: getIntEnv("SEARCH_MAX_RESULTS", 5),

		NATSEnabled: getBoolEnv("NATS_ENABLED", false),
		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:  getEnv("NATS_CA_FILE", ""),
		NATSCert:    getEnv("NATS_CERT_FILE", ""),
		NATSKey:     getEnv("NATS_KEY_FILE", ""),
		NATSToken:   getEnv("NATS_TOKEN", ""),

		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
