package config

import (
	"fmt"
	"time"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
}

// ValidateConfig проверяет корректность конфигурации
func (c *GeminiConfig) ValidateConfig() error {
	if c.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be between 0 and 2")
	}

	return nil
}

// GetModelInfo возвращает информацию о используемой модели
func (c *GeminiConfig) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":       c.Model,
		"timeout":     c.Timeout.String(),
		"temperature": c.Temperature,
		"provider":    "Gemini",
	}
}
