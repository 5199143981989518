// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port        int
	BaseURL     string // public URL advertised in the OpenAPI spec
	APIToken    string // static bearer token for the v2 API
	CORSOrigins []string

	// Database
	DatabaseURL string

	// Worker
	WorkerEnabled      bool // run the ingest worker inside the API process
	WorkerPollInterval time.Duration

	// Fetcher
	FetchMaxBytes     int
	FetchTimeout      time.Duration
	FetchMaxRedirects int
	HostThrottle      time.Duration // minimum interval between requests to one host
	UserAgent         string

	// Extractor
	ExtractMaxChars int

	// Enrichment
	EnrichEnabled      bool // default enrich flag for ingested URLs
	SectionPromptChars int  // per-section content cap in the LLM prompt
	SummaryMaxChars    int
	SignalsMax         int
	SignalMaxChars     int
	SnippetMaxChars    int
	OpenAIAPIBase      string
	OpenAIAPIKey       string
	OpenAIModel        string

	// Fixtures
	FixturesDir string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", ""),
		APIToken:    getEnv("CONTEXT_API_TOKEN", ""),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),

		FetchMaxBytes:     getEnvInt("INTEL_FETCH_MAX_BYTES", 2_000_000),
		FetchTimeout:      time.Duration(getEnvInt("INTEL_FETCH_TIMEOUT_S", 20)) * time.Second,
		FetchMaxRedirects: getEnvInt("INTEL_FETCH_MAX_REDIRECTS", 5),
		HostThrottle:      time.Duration(getEnvInt("INTEL_HOST_THROTTLE_MS", 1200)) * time.Millisecond,
		UserAgent:         getEnv("INTEL_USER_AGENT", "context_api/1.0"),

		ExtractMaxChars: getEnvInt("INTEL_EXTRACT_MAX_CHARS", 120_000),

		EnrichEnabled:      getEnvBool("INTEL_ENRICH", true),
		SectionPromptChars: getEnvInt("INTEL_SECTION_PROMPT_CHARS", 2000),
		SummaryMaxChars:    getEnvInt("INTEL_SUMMARY_MAX_CHARS", 900),
		SignalsMax:         getEnvInt("INTEL_SIGNALS_MAX", 8),
		SignalMaxChars:     getEnvInt("INTEL_SIGNAL_MAX_CHARS", 280),
		SnippetMaxChars:    getEnvInt("INTEL_SNIPPET_MAX_CHARS", 200),
		OpenAIAPIBase:      getEnv("OPENAI_API_BASE", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4.1-mini"),

		FixturesDir: getEnv("INTEL_FIXTURES_DIR", "fixtures/intel"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
