package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Hugging Face Inference API (intent + sentiment classification)
	HFAPIToken        string
	HFBaseURL         string
	IntentModel       string
	SentimentModel    string
	ClassifierTimeout time.Duration

	// Generation backend (OpenAI-compatible; defaults target a local Ollama)
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMMaxTokens      int
	GenerationTimeout time.Duration

	// Twilio (outbound reminder calls + webhook responses)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Reminder scheduler
	ReminderSchedulerEnabled bool
	ReminderPollInterval     time.Duration

	// Storage retry policy for appointment/history writes
	StorageRetryAttempts int
	StorageRetryBackoff  time.Duration

	MemoryTTL time.Duration

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		HFAPIToken:        getEnv("HF_API_TOKEN", ""),
		HFBaseURL:         getEnv("HF_BASE_URL", "https://api-inference.huggingface.co"),
		IntentModel:       getEnv("INTENT_MODEL", "Falconsai/intent_classification"),
		SentimentModel:    getEnv("SENTIMENT_MODEL", "tabularisai/multilingual-sentiment-analysis"),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),

		LLMAPIKey:         getEnv("LLM_API_KEY", "ollama"),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMModel:          getEnv("LLM_MODEL", "llama3"),
		LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 256),
		GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		ReminderSchedulerEnabled: getEnvAsBool("REMINDER_SCHEDULER_ENABLED", false),
		ReminderPollInterval:     getEnvAsDuration("REMINDER_POLL_INTERVAL", 30*time.Minute),

		StorageRetryAttempts: getEnvAsInt("STORAGE_RETRY_ATTEMPTS", 2),
		StorageRetryBackoff:  getEnvAsDuration("STORAGE_RETRY_BACKOFF", 200*time.Millisecond),

		MemoryTTL: getEnvAsDuration("MEMORY_TTL", 30*24*time.Hour),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
