package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/sentiforge/backend/internal/config"
	"github.com/sentiforge/backend/internal/handler"
	"github.com/sentiforge/backend/internal/service/generator"
	"github.com/sentiforge/backend/internal/service/history"
	"github.com/sentiforge/backend/internal/service/pipeline"
	sentimentservice "github.com/sentiforge/backend/internal/service/sentiment"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	hist := history.NewService(cfg.History.Limit)

	primary, chatModel := buildGenerator(ctx, cfg)
	log.Printf("generation backend: %s", primary.Name())

	var fallback generator.Generator
	if cfg.Generation.DegradedFallback && primary.Name() != config.BackendStub {
		fallback = generator.NewStub()
		log.Println("degraded stub fallback enabled")
	}

	classifier := buildClassifier(ctx, cfg, chatModel)
	if classifier.Enabled() {
		log.Println("sentiment classifier LLM tier enabled")
	} else if cfg.AI.SentimentLLMEnabled {
		log.Println("sentiment classifier requested but chat model unavailable, falling back to heuristics")
	} else {
		log.Println("sentiment classifier running on heuristics")
	}

	pipe := pipeline.NewService(classifier, primary, fallback, hist, cfg.Generation)
	router := handler.NewRouter(pipe, hist)

	startServer(ctx, cfg.Server, router)
}

// buildGenerator constructs the configured backend, degrading to the stub
// when model initialization fails so the service stays functional. The Ark
// chat model is returned for reuse by the sentiment classifier.
func buildGenerator(ctx context.Context, cfg *config.Config) (generator.Generator, model.ChatModel) {
	switch cfg.Generation.Backend {
	case config.BackendArk:
		arkGen, err := generator.NewArk(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize ark backend: %v", err)
			log.Println("continuing with the template stub generator")
			return generator.NewStub(), nil
		}
		return arkGen, arkGen.ChatModel()
	case config.BackendOpenAI:
		openAIGen, err := generator.NewOpenAI(cfg.OpenAI)
		if err != nil {
			log.Printf("warning: failed to initialize openai backend: %v", err)
			log.Println("continuing with the template stub generator")
			return generator.NewStub(), nil
		}
		return openAIGen, nil
	default:
		return generator.NewStub(), nil
	}
}

func buildClassifier(ctx context.Context, cfg *config.Config, chatModel model.ChatModel) *sentimentservice.Service {
	classifier, err := sentimentservice.NewService(ctx, chatModel, sentimentservice.Config{
		Enabled: cfg.AI.SentimentLLMEnabled,
	})
	if err != nil {
		log.Printf("warning: failed to initialize sentiment classifier: %v", err)
		classifier, _ = sentimentservice.NewService(ctx, nil, sentimentservice.Config{})
	}
	return classifier
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("sentiforge backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
