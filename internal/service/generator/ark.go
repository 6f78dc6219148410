package generator

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sentiforge/backend/internal/analysis/sentiment"
	"github.com/sentiforge/backend/internal/config"
)

// Ark generates text through an Ark chat model wired into an eino chain.
type Ark struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	streaming bool
}

// NewArk builds the chat model from configuration and compiles the chain.
func NewArk(ctx context.Context, cfg config.AIConfig) (*Ark, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Ark{
		chatModel: chatModel,
		chain:     runnable,
		streaming: cfg.StreamResponse,
	}, nil
}

func (a *Ark) Name() string {
	return "ark"
}

// ChatModel exposes the underlying model so the sentiment classifier can
// reuse it instead of holding a second connection.
func (a *Ark) ChatModel() model.ChatModel {
	return a.chatModel
}

// StreamingEnabled reports whether streamed generation was configured.
func (a *Ark) StreamingEnabled() bool {
	return a.streaming
}

// Generate invokes the chain once per requested candidate. Temperature is a
// model-level setting for Ark, so the sentiment register rides entirely on
// the system prompt.
func (a *Ark) Generate(ctx context.Context, promptText string, label sentiment.Label, opts Options) ([]string, error) {
	count := opts.NumCandidates
	if count < 1 {
		count = 1
	}

	input := a.chainInput(promptText, label)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		response, err := a.chain.Invoke(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		out = append(out, Truncate(response.Content, opts.MaxLength))
	}

	log.Printf("[ark] generated %d candidate(s), sentiment=%s", len(out), label)
	return out, nil
}

// GenerateStream streams one candidate's chunks through the chain.
func (a *Ark) GenerateStream(ctx context.Context, promptText string, label sentiment.Label) (*schema.StreamReader[*schema.Message], error) {
	if !a.streaming {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := a.chain.Stream(ctx, a.chainInput(promptText, label))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return stream, nil
}

func (a *Ark) chainInput(promptText string, label sentiment.Label) map[string]any {
	return map[string]any{
		"system": systemPrompt(label),
		"prompt": promptText,
	}
}
