package copywriter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gnemet/CueForge/internal/config"
)

const defaultGeminiModel = "gemini-2.5-flash-preview-09-2025"

// geminiGenerator drives Google's generative API. The client is created per
// call: runs are short batches and nothing else shares the connection.
type geminiGenerator struct {
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	log         *zap.Logger
}

func newGeminiGenerator(st config.ProviderSettings, timeout time.Duration, log *zap.Logger) *geminiGenerator {
	model := st.Model
	if model == "" {
		model = defaultGeminiModel
	}
	temperature := st.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}
	return &geminiGenerator{
		apiKey:      st.Key,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		log:         log,
	}
}

func (g *geminiGenerator) Generate(ctx context.Context, productName string) Points {
	content, err := g.complete(ctx, productName)
	if err != nil {
		g.log.Warn("copy generation failed", zap.String("product", productName), zap.Error(err))
		return Points{}
	}
	return Parse(content)
}

func (g *geminiGenerator) complete(ctx context.Context, productName string) (string, error) {
	prompt, err := renderPrompt(productName)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(float32(g.temperature))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected gemini part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}
