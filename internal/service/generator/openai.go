package generator

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sentiforge/backend/internal/analysis/sentiment"
	"github.com/sentiforge/backend/internal/config"
)

// OpenAI generates text through the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the client from configuration.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAI, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("openai credentials missing: provide OPENAI_KEY")
	}
	return &OpenAI{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}, nil
}

func (g *OpenAI) Name() string {
	return "openai"
}

// Generate requests all candidates in one completion call via N. A zero
// temperature option falls back to the per-sentiment default.
func (g *OpenAI) Generate(ctx context.Context, promptText string, label sentiment.Label, opts Options) ([]string, error) {
	count := opts.NumCandidates
	if count < 1 {
		count = 1
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = sentimentTemperature(label)
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(label)},
			{Role: openai.ChatMessageRoleUser, Content: promptText},
		},
		Temperature: float32(temperature),
		N:           count,
	}
	if opts.MaxLength > 0 {
		// MaxLength is a rune budget; a token is a few runes, so this bound
		// is generous and the truncate below enforces the exact cap.
		req.MaxTokens = opts.MaxLength
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion response", ErrModelUnavailable)
	}

	out := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		out = append(out, Truncate(choice.Message.Content, opts.MaxLength))
	}

	log.Printf("[openai] generated %d candidate(s), sentiment=%s, tokens=%d", len(out), label, resp.Usage.CompletionTokens)
	return out, nil
}
