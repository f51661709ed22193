// Package copywriter turns a product name into four spoken-word selling
// points via a text-generation provider, absorbing malformed replies.
package copywriter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gnemet/CueForge/internal/config"
)

// Points maps the four fixed keys (selling_point_1..4) to generated text.
// Missing keys mean the reply could not be recovered for that slot.
type Points map[string]string

// Keys is the fixed key contract shared with the slide template.
var Keys = []string{"selling_point_1", "selling_point_2", "selling_point_3", "selling_point_4"}

// Generator produces selling points for one product. Implementations never
// let a transport or parse failure escape: the worst outcome is an empty map.
type Generator interface {
	Generate(ctx context.Context, productName string) Points
}

// New creates a Generator for the given provider settings. An empty API key
// returns nil, meaning generation is disabled and the caller substitutes
// placeholder text.
func New(st config.ProviderSettings, timeout time.Duration, log *zap.Logger) (Generator, error) {
	if st.Key == "" {
		return nil, nil
	}
	switch st.Driver {
	case "", "deepseek", "openai", "openai-compatible":
		return newChatGenerator(st, timeout, log), nil
	case "gemini":
		return newGeminiGenerator(st, timeout, log), nil
	default:
		return nil, fmt.Errorf("unsupported AI driver: %q", st.Driver)
	}
}
