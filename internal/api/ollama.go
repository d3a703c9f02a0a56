package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tech-interview-engine/internal/config"
)

// OllamaClient — клиент локального стримингового бэкенда Ollama
type OllamaClient struct {
	url    string
	model  string
	client *http.Client
}

// Message — реплика диалога с ролью для чат-запроса
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChunk — один токен потока либо ошибка потока
type StreamChunk struct {
	Token string
	Err   error
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewOllamaClient создает клиент из конфигурации
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	return &OllamaClient{
		url:   cfg.URL,
		model: cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ChatStream отправляет диалог и возвращает канал токенов ответа.
// Канал закрывается по окончании потока; ошибка передается последним
// элементом. Обрыв потока не фатален: накопленная часть ответа
// остается пригодной для транскрипта.
func (c *OllamaClient) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	request := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama API error: status %d", resp.StatusCode)
	}

	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Нечитаемая строка потока пропускается
				continue
			}

			if chunk.Error != "" {
				chunks <- StreamChunk{Err: fmt.Errorf("ollama stream error: %s", chunk.Error)}
				return
			}

			if chunk.Message.Content != "" {
				select {
				case chunks <- StreamChunk{Token: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}

			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			chunks <- StreamChunk{Err: fmt.Errorf("ollama stream read error: %w", err)}
		}
	}()

	return chunks, nil
}
