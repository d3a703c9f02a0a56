package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	Server    ServerConfig
	Interview InterviewConfig
}

type OllamaConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type InterviewConfig struct {
	Duration       time.Duration
	FollowupCap    int
	StorePath      string
	DictionaryPath string
	EvidenceDir    string
}

// LoadAppConfig загружает конфигурацию приложения из переменных окружения
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			BaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			Temperature: getEnvAsFloat("GEMINI_TEMPERATURE", 0.1),
		},
		Ollama: OllamaConfig{
			URL:     getEnv("OLLAMA_URL", "http://localhost:11434/api/chat"),
			Model:   getEnv("OLLAMA_MODEL", "llama3.2:1b"),
			Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 60*time.Second),
		},
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout: getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			// WriteTimeout нулевой: ответы стримятся через SSE
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Interview: InterviewConfig{
			Duration:       getEnvAsDuration("INTERVIEW_DURATION", 30*time.Minute),
			FollowupCap:    getEnvAsInt("INTERVIEW_FOLLOWUP_CAP", 2),
			StorePath:      getEnv("TRANSCRIPT_DB_PATH", "data/transcripts.db"),
			DictionaryPath: getEnv("DICTIONARY_PATH", "config/dictionary.yaml"),
			EvidenceDir:    getEnv("EVIDENCE_DIR", "evidence"),
		},
	}
}

// helper функции для чтения переменных окружения
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
