package pipeline

import (
	"context"
	"fmt"
	"testing"

	analysis "github.com/sentiforge/backend/internal/analysis/sentiment"
	"github.com/sentiforge/backend/internal/config"
	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	sentimentservice "github.com/sentiforge/backend/internal/service/sentiment"
)

type failingGenerator struct{}

func (failingGenerator) Name() string { return "failing" }

func (failingGenerator) Generate(context.Context, string, analysis.Label, generator.Options) ([]string, error) {
	return nil, fmt.Errorf("%w: backend exploded", generator.ErrModelUnavailable)
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (blockingGenerator) Name() string { return "blocking" }

func (g blockingGenerator) Generate(context.Context, string, analysis.Label, generator.Options) ([]string, error) {
	g.started <- struct{}{}
	<-g.release
	return []string{"done"}, nil
}

func defaults() config.GenerationConfig {
	return config.GenerationConfig{MaxLength: 240, NumCandidates: 1}
}

func newPipeline(t *testing.T, primary, fallback generator.Generator) (*Service, *history.Service, string) {
	t.Helper()

	classifier, err := sentimentservice.NewService(context.Background(), nil, sentimentservice.Config{})
	if err != nil {
		t.Fatalf("classifier err: %v", err)
	}

	hist := history.NewService(0)
	session, err := hist.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	return NewService(classifier, primary, fallback, hist, defaults()), hist, session.ID
}

func historyLen(t *testing.T, hist *history.Service, sessionID string) int {
	t.Helper()
	records, err := hist.Records(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Records err: %v", err)
	}
	return len(records)
}

func TestGenerateAppendsExactlyOneRecord(t *testing.T) {
	pipe, hist, sessionID := newPipeline(t, generator.NewStub(), nil)

	record, err := pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: "I love sunny days"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if record.Sentiment != string(analysis.Positive) {
		t.Fatalf("expected positive sentiment, got %s", record.Sentiment)
	}
	if record.Score <= 0 {
		t.Fatalf("expected automatic analysis to carry a score, got %f", record.Score)
	}
	if len(record.Candidates) != 1 || record.Candidates[0] == "" {
		t.Fatalf("expected one non-empty candidate, got %v", record.Candidates)
	}
	if record.Generator != "stub" {
		t.Fatalf("expected stub generator, got %s", record.Generator)
	}
	if got := historyLen(t, hist, sessionID); got != 1 {
		t.Fatalf("expected exactly one record in history, got %d", got)
	}
}

func TestGenerateEmptyPromptLeavesHistoryUntouched(t *testing.T) {
	pipe, hist, sessionID := newPipeline(t, generator.NewStub(), nil)

	for _, prompt := range []string{"", "   \n"} {
		if _, err := pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: prompt}); err != ErrEmptyPrompt {
			t.Fatalf("expected ErrEmptyPrompt for %q, got %v", prompt, err)
		}
	}
	if got := historyLen(t, hist, sessionID); got != 0 {
		t.Fatalf("expected empty history, got %d records", got)
	}
}

func TestGenerateUnknownSession(t *testing.T) {
	pipe, _, _ := newPipeline(t, generator.NewStub(), nil)

	_, err := pipe.Generate(context.Background(), Request{SessionID: "missing", Prompt: "hello"})
	if err != history.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManualOverrideWins(t *testing.T) {
	pipe, _, sessionID := newPipeline(t, generator.NewStub(), nil)

	record, err := pipe.Generate(context.Background(), Request{
		SessionID: sessionID,
		Prompt:    "I love sunny days",
		Sentiment: "negative",
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if record.Sentiment != string(analysis.Negative) {
		t.Fatalf("expected override to win, got %s", record.Sentiment)
	}
	if record.Score != 0 {
		t.Fatalf("manual override should carry no score, got %f", record.Score)
	}
}

func TestInvalidOverrideRejected(t *testing.T) {
	pipe, hist, sessionID := newPipeline(t, generator.NewStub(), nil)

	_, err := pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: "hello", Sentiment: "ecstatic"})
	if err == nil {
		t.Fatal("expected error for invalid sentiment override")
	}
	if got := historyLen(t, hist, sessionID); got != 0 {
		t.Fatalf("expected empty history, got %d records", got)
	}
}

func TestModelFailureAppendsNothingAndRecovers(t *testing.T) {
	pipe, hist, sessionID := newPipeline(t, failingGenerator{}, nil)
	ctx := context.Background()

	_, err := pipe.Generate(ctx, Request{SessionID: sessionID, Prompt: "hello there"})
	if err == nil {
		t.Fatal("expected model unavailable error")
	}
	if got := historyLen(t, hist, sessionID); got != 0 {
		t.Fatalf("expected empty history after failure, got %d records", got)
	}

	// The pipeline must be idle again and accept the next submission.
	if _, err := pipe.Generate(ctx, Request{SessionID: sessionID, Prompt: "hello again"}); err == nil {
		t.Fatal("expected the retry to hit the same failing backend")
	}
}

func TestDegradedFallbackToStub(t *testing.T) {
	pipe, hist, sessionID := newPipeline(t, failingGenerator{}, generator.NewStub())

	record, err := pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: "stuck in traffic"})
	if err != nil {
		t.Fatalf("expected degraded generation to succeed, got %v", err)
	}
	if record.Generator != "stub" {
		t.Fatalf("expected stub to serve the request, got %s", record.Generator)
	}
	if got := historyLen(t, hist, sessionID); got != 1 {
		t.Fatalf("expected one record, got %d", got)
	}
}

func TestSecondInFlightRequestRejected(t *testing.T) {
	gen := blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	pipe, _, sessionID := newPipeline(t, gen, nil)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := pipe.Generate(ctx, Request{SessionID: sessionID, Prompt: "slow request"})
		errCh <- err
	}()
	<-gen.started

	if _, err := pipe.Generate(ctx, Request{SessionID: sessionID, Prompt: "concurrent request"}); err != ErrSessionBusy {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	close(gen.release)
	if err := <-errCh; err != nil {
		t.Fatalf("first request should succeed, got %v", err)
	}

	// Idle again: a fresh request is accepted. The release channel is
	// already closed, so the generator no longer blocks.
	go func() {
		_, err := pipe.Generate(ctx, Request{SessionID: sessionID, Prompt: "follow-up"})
		errCh <- err
	}()
	<-gen.started
	if err := <-errCh; err != nil {
		t.Fatalf("follow-up request should succeed, got %v", err)
	}
}

func TestInvalidOptionsRejected(t *testing.T) {
	pipe, _, sessionID := newPipeline(t, generator.NewStub(), nil)
	bad := -1

	_, err := pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: "hello", MaxLength: &bad})
	if err == nil {
		t.Fatal("expected error for invalid maxLength")
	}

	tooMany := 9
	_, err = pipe.Generate(context.Background(), Request{SessionID: sessionID, Prompt: "hello", NumCandidates: &tooMany})
	if err == nil {
		t.Fatal("expected error for invalid numCandidates")
	}
}

func TestProgressReportsSentimentStage(t *testing.T) {
	pipe, _, sessionID := newPipeline(t, generator.NewStub(), nil)

	var events []Event
	_, err := pipe.GenerateWithProgress(context.Background(), Request{SessionID: sessionID, Prompt: "I love sunny days"}, func(ev Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if len(events) == 0 || events[0].Stage != StageSentiment {
		t.Fatalf("expected a sentiment stage event first, got %+v", events)
	}
	if events[0].Sentiment.Label != analysis.Positive {
		t.Fatalf("expected positive sentiment event, got %s", events[0].Sentiment.Label)
	}
}
