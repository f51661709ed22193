package copywriter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnemet/CueForge/internal/config"
)

const (
	defaultChatBaseURL     = "https://api.deepseek.com"
	defaultChatModel       = "deepseek-chat"
	defaultChatTemperature = 0.7
)

// chatGenerator talks to an OpenAI-compatible chat-completions endpoint.
type chatGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
	log         *zap.Logger
}

func newChatGenerator(st config.ProviderSettings, timeout time.Duration, log *zap.Logger) *chatGenerator {
	model := st.Model
	if model == "" {
		model = defaultChatModel
	}
	baseURL := st.Endpoint
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	temperature := st.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}
	return &chatGenerator{
		apiKey:      st.Key,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
		log:         log,
	}
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *chatGenerator) Generate(ctx context.Context, productName string) Points {
	content, err := g.complete(ctx, productName)
	if err != nil {
		g.log.Warn("copy generation failed", zap.String("product", productName), zap.Error(err))
		return Points{}
	}
	return Parse(content)
}

func (g *chatGenerator) complete(ctx context.Context, productName string) (string, error) {
	prompt, err := renderPrompt(productName)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	body := chatRequest{
		Model:          g.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    g.temperature,
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, respBody)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from chat API")
	}
	return apiResp.Choices[0].Message.Content, nil
}
