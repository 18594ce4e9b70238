package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Supported embedding and chat model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embeddings
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int

	// Chat model
	LLMProvider string
	LLMModel    string

	// Provider endpoints and credentials
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AWSRegion       string

	// Agent behavior
	HintBudget         int
	AgentMaxIterations int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "detective"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "cases"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("DETECTIVE_EMBED_PROVIDER", "openai"),
		EmbedModel:     getEnv("DETECTIVE_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("DETECTIVE_EMBED_DIMENSION", 1536),

		LLMProvider: getEnv("DETECTIVE_LLM_PROVIDER", "openai"),
		LLMModel:    getEnv("DETECTIVE_LLM_MODEL", "gpt-4o-mini"),

		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		HintBudget:         getEnvInt("DETECTIVE_HINT_BUDGET", 3),
		AgentMaxIterations: getEnvInt("DETECTIVE_AGENT_MAX_ITERATIONS", 8),

		LogFile:  getEnv("DETECTIVE_LOG_FILE", "/tmp/detective.log"),
		LogLevel: parseLogLevel(getEnv("DETECTIVE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
