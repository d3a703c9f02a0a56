package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var validDifficulties = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

var validModes = map[string]bool{
	"curriculum": true,
	"adaptive":   true,
	"plain":      true,
}

// Load загружает шаблоны интервью из YAML файла
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	// Валидация конфигурации
	err = validateConfig(&config)
	if err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return &config, nil
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if len(config.Templates) == 0 {
		return fmt.Errorf("конфигурация должна содержать хотя бы один шаблон")
	}

	// Проверяем ID шаблонов
	for i, tmpl := range config.Templates {
		expectedID := i + 1
		if tmpl.ID != expectedID {
			return fmt.Errorf("шаблон %d имеет неверный ID: ожидался %d, получен %d",
				i, expectedID, tmpl.ID)
		}

		if tmpl.Title == "" {
			return fmt.Errorf("шаблон %d должен иметь title", tmpl.ID)
		}

		if tmpl.Role == "" {
			return fmt.Errorf("шаблон %d должен иметь role", tmpl.ID)
		}

		if !validDifficulties[tmpl.Difficulty] {
			return fmt.Errorf("шаблон %d имеет неизвестную сложность %q", tmpl.ID, tmpl.Difficulty)
		}

		if !validModes[tmpl.Mode] {
			return fmt.Errorf("шаблон %d имеет неизвестный режим %q", tmpl.ID, tmpl.Mode)
		}

		if tmpl.Mode == "curriculum" && len(tmpl.Topics) == 0 {
			return fmt.Errorf("шаблон %d в режиме curriculum должен иметь topics", tmpl.ID)
		}

		if tmpl.DurationMinutes <= 0 {
			return fmt.Errorf("шаблон %d должен иметь положительную длительность", tmpl.ID)
		}
	}

	return nil
}
