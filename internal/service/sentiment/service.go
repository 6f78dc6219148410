package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/sentiforge/backend/internal/analysis/sentiment"
)

// Config controls the classifier service.
type Config struct {
	Enabled bool
}

// Service classifies prompt sentiment with a chat model and falls back to
// the keyword heuristic whenever the model tier is missing or misbehaves.
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   func(text string) analysis.Result
}

// NewService builds the classifier. chatModel may reuse an existing model
// instance; passing nil disables the LLM tier.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		fallback: analysis.Analyze,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile sentiment classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether the LLM tier is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Analyze returns the sentiment of text. The heuristic tier never fails, so
// the result is always usable even when the model call errors out.
func (s *Service) Analyze(ctx context.Context, text string) analysis.Result {
	if !s.Enabled() {
		return s.fallback(text)
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{
		"text": strings.TrimSpace(text),
	})
	if err != nil {
		log.Printf("[sentiment] classifier invoke failed, use fallback: %v", err)
		return s.fallback(text)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallback(text)
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[sentiment] classifier output parse failed, use fallback: %v", err)
		return s.fallback(text)
	}

	label, ok := analysis.ParseLabel(payload.Label)
	if !ok {
		return s.fallback(text)
	}

	return analysis.Result{Label: label, Score: clampScore(payload.Score)}
}

// parseClassifierOutput extracts the JSON object from the model response,
// tolerating surrounding prose or code fences.
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func clampScore(val float64) float64 {
	if val <= 0 {
		return 0.6
	}
	if val > 1 {
		return 1
	}
	return val
}

type classifierPayload struct {
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

const classifierSystemPrompt = "You are a sentiment classifier. Read the provided text and decide its overall sentiment. " +
	"Return only a JSON object with these fields: label (one of positive/negative/neutral), " +
	"score (a number between 0 and 1 expressing confidence), reason (one short sentence). No extra text."

const classifierUserPrompt = "Text to classify:\n{text}\n\nReturn the JSON object."
