package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/sentiforge/backend/internal/analysis/sentiment"
)

// ErrModelUnavailable signals that a generation backend failed to initialize
// or infer. Callers decide whether to surface it or degrade to the stub.
var ErrModelUnavailable = errors.New("generation model unavailable")

// Options tunes a single generation call. The pipeline resolves request
// overrides against configured defaults before a backend sees them.
type Options struct {
	// MaxLength caps each candidate's length in runes.
	MaxLength int
	// Temperature controls sampling randomness; zero lets the backend pick
	// a sentiment-appropriate default.
	Temperature float64
	// NumCandidates is how many alternatives to produce.
	NumCandidates int
}

// Generator produces sentiment-flavored text. Implementations are selected
// at initialization time, never per request.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, label sentiment.Label, opts Options) ([]string, error)
}

// sentimentTemperature mirrors the sampling defaults the product tuned per
// register: livelier for positive, most controlled for neutral.
func sentimentTemperature(label sentiment.Label) float64 {
	switch label {
	case sentiment.Positive:
		return 0.8
	case sentiment.Negative:
		return 0.75
	default:
		return 0.7
	}
}

func systemPrompt(label sentiment.Label) string {
	var register string
	switch label {
	case sentiment.Positive:
		register = "warm and upbeat; let the continuation carry joy, accomplishment or gratitude"
	case sentiment.Negative:
		register = "frustrated or somber; let the continuation carry disappointment or difficulty"
	default:
		register = "calm and matter-of-fact; keep the continuation ordinary and unremarkable"
	}

	return "You are a short-form writing assistant. Continue the user's prompt with one brief passage. " +
		"The emotional register must be " + register + ". " +
		"Do not repeat the prompt, do not explain yourself, return only the continuation."
}

// Truncate caps text at maxRunes runes; non-positive caps are a no-op.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
