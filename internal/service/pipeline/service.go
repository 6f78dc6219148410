package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	analysis "github.com/sentiforge/backend/internal/analysis/sentiment"
	"github.com/sentiforge/backend/internal/config"
	"github.com/sentiforge/backend/internal/model/generation"
	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	sentimentservice "github.com/sentiforge/backend/internal/service/sentiment"
)

var (
	ErrEmptyPrompt      = errors.New("prompt must not be empty")
	ErrInvalidSentiment = errors.New("invalid sentiment label")
	ErrInvalidOptions   = errors.New("invalid generation options")
	ErrSessionBusy      = errors.New("session already has a request in flight")
)

// Request carries one user action through the pipeline.
type Request struct {
	SessionID string
	Prompt    string
	// Sentiment, when set, is a manual override that always wins over the
	// classifier.
	Sentiment     string
	MaxLength     *int
	Temperature   *float64
	NumCandidates *int
}

// Stage identifies a progress checkpoint within one request.
type Stage string

const (
	StageSentiment Stage = "sentiment"
	StageDelta     Stage = "delta"
)

// Event is delivered to a progress observer as the request advances.
type Event struct {
	Stage     Stage
	Sentiment analysis.Result
	Delta     string
}

// Progress observes pipeline stages; used by the SSE and websocket surfaces.
type Progress func(Event)

// streamingGenerator is the optional capability the ark backend provides.
type streamingGenerator interface {
	generator.Generator
	StreamingEnabled() bool
	GenerateStream(ctx context.Context, prompt string, label analysis.Label) (*schema.StreamReader[*schema.Message], error)
}

// Service orchestrates one user action: resolve sentiment, generate text,
// append the record. One request per session is in flight at a time; the
// service is back to idle once Generate returns, success or failure.
type Service struct {
	classifier *sentimentservice.Service
	primary    generator.Generator
	fallback   generator.Generator
	history    *history.Service
	defaults   config.GenerationConfig

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewService wires the pipeline. fallback may be nil to disable degraded
// operation; when set, a model failure retries once on it.
func NewService(classifier *sentimentservice.Service, primary, fallback generator.Generator, hist *history.Service, defaults config.GenerationConfig) *Service {
	return &Service{
		classifier: classifier,
		primary:    primary,
		fallback:   fallback,
		history:    hist,
		defaults:   defaults,
		busy:       make(map[string]struct{}),
	}
}

// GeneratorName reports the active backend for health reporting.
func (s *Service) GeneratorName() string {
	return s.primary.Name()
}

// SentimentLLMEnabled reports whether the classifier's model tier is active.
func (s *Service) SentimentLLMEnabled() bool {
	return s.classifier.Enabled()
}

// Generate runs one request to completion. Exactly one record is appended on
// success; none on failure.
func (s *Service) Generate(ctx context.Context, req Request) (generation.Record, error) {
	return s.generate(ctx, req, nil)
}

// GenerateWithProgress behaves like Generate and additionally reports stage
// events to the observer.
func (s *Service) GenerateWithProgress(ctx context.Context, req Request, progress Progress) (generation.Record, error) {
	return s.generate(ctx, req, progress)
}

func (s *Service) generate(ctx context.Context, req Request, progress Progress) (generation.Record, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return generation.Record{}, ErrEmptyPrompt
	}

	if _, err := s.history.GetSession(ctx, req.SessionID); err != nil {
		return generation.Record{}, err
	}

	if !s.acquire(req.SessionID) {
		return generation.Record{}, ErrSessionBusy
	}
	defer s.release(req.SessionID)

	opts, err := s.resolveOptions(req)
	if err != nil {
		return generation.Record{}, err
	}

	resolved, err := s.resolveSentiment(ctx, prompt, req.Sentiment)
	if err != nil {
		return generation.Record{}, err
	}
	if progress != nil {
		progress(Event{Stage: StageSentiment, Sentiment: resolved})
	}

	candidates, used, err := s.runGenerator(ctx, prompt, resolved.Label, opts, progress)
	if err != nil {
		return generation.Record{}, err
	}

	record := generation.Record{
		SessionID:  req.SessionID,
		Prompt:     prompt,
		Sentiment:  string(resolved.Label),
		Score:      resolved.Score,
		Candidates: candidates,
		Generator:  used,
	}

	appended, err := s.history.Append(ctx, record)
	if err != nil {
		return generation.Record{}, err
	}

	log.Printf("[pipeline] session=%s sentiment=%s generator=%s candidates=%d", req.SessionID, record.Sentiment, used, len(candidates))
	return appended, nil
}

// resolveSentiment applies the manual override when present, otherwise asks
// the classifier. Manual labels carry no confidence score.
func (s *Service) resolveSentiment(ctx context.Context, prompt, override string) (analysis.Result, error) {
	if override != "" {
		label, ok := analysis.ParseLabel(override)
		if !ok {
			return analysis.Result{}, fmt.Errorf("%w: %q", ErrInvalidSentiment, override)
		}
		return analysis.Result{Label: label}, nil
	}
	return s.classifier.Analyze(ctx, prompt), nil
}

func (s *Service) resolveOptions(req Request) (generator.Options, error) {
	opts := generator.Options{
		MaxLength:     s.defaults.MaxLength,
		Temperature:   s.defaults.Temperature,
		NumCandidates: s.defaults.NumCandidates,
	}

	if req.MaxLength != nil {
		if *req.MaxLength < 1 {
			return generator.Options{}, fmt.Errorf("%w: maxLength must be positive", ErrInvalidOptions)
		}
		opts.MaxLength = *req.MaxLength
	}
	if req.Temperature != nil {
		if *req.Temperature < 0 || *req.Temperature > 2 {
			return generator.Options{}, fmt.Errorf("%w: temperature must be within [0,2]", ErrInvalidOptions)
		}
		opts.Temperature = *req.Temperature
	}
	if req.NumCandidates != nil {
		if *req.NumCandidates < 1 || *req.NumCandidates > 5 {
			return generator.Options{}, fmt.Errorf("%w: numCandidates must be within [1,5]", ErrInvalidOptions)
		}
		opts.NumCandidates = *req.NumCandidates
	}

	return opts, nil
}

func (s *Service) runGenerator(ctx context.Context, prompt string, label analysis.Label, opts generator.Options, progress Progress) ([]string, string, error) {
	candidates, err := s.generateCandidates(ctx, s.primary, prompt, label, opts, progress)
	if err == nil {
		return candidates, s.primary.Name(), nil
	}
	if s.fallback == nil || !errors.Is(err, generator.ErrModelUnavailable) || ctx.Err() != nil {
		return nil, "", err
	}

	log.Printf("[pipeline] %s backend unavailable, degrading to %s: %v", s.primary.Name(), s.fallback.Name(), err)
	candidates, err = s.fallback.Generate(ctx, prompt, label, opts)
	if err != nil {
		return nil, "", err
	}
	return candidates, s.fallback.Name(), nil
}

// generateCandidates streams deltas through the observer when the backend
// supports it and only one candidate was requested; otherwise it is a plain
// blocking call.
func (s *Service) generateCandidates(ctx context.Context, gen generator.Generator, prompt string, label analysis.Label, opts generator.Options, progress Progress) ([]string, error) {
	streamer, ok := gen.(streamingGenerator)
	if !ok || progress == nil || opts.NumCandidates > 1 || !streamer.StreamingEnabled() {
		return gen.Generate(ctx, prompt, label, opts)
	}

	stream, err := streamer.GenerateStream(ctx, prompt, label)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, fmt.Errorf("%w: %v", generator.ErrModelUnavailable, recvErr)
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			progress(Event{Stage: StageDelta, Delta: chunk.Content})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generator.ErrModelUnavailable, err)
	}

	return []string{generator.Truncate(response.Content, opts.MaxLength)}, nil
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, inFlight := s.busy[sessionID]; inFlight {
		return false
	}
	s.busy[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	delete(s.busy, sessionID)
	s.mu.Unlock()
}
