package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	OpenAI     OpenAIConfig
	Generation GenerationConfig
	History    HistoryConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	openAI := loadOpenAIConfig()

	gen, err := loadGenerationConfig(ai, openAI)
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		OpenAI:     openAI,
		Generation: gen,
		History:    history,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig holds Ark chat-model settings shared by the sentiment classifier
// and the ark generation backend.
type AIConfig struct {
	APIKey              string
	AccessKey           string
	SecretKey           string
	Model               string
	BaseURL             string
	Region              string
	Temperature         *float64
	TopP                *float64
	MaxTokens           *int
	StreamResponse      bool
	SentimentLLMEnabled bool
}

// Enabled reports whether the required Ark credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	sentimentLLM, err := parseBoolEnv("SENTIMENT_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:              strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:           strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:           strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:               strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:             getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:              getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:         temperature,
		TopP:                topP,
		MaxTokens:           maxTokens,
		StreamResponse:      stream,
		SentimentLLMEnabled: sentimentLLM,
	}, nil
}

// OpenAIConfig holds credentials for the openai generation backend.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether an OpenAI key was supplied.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey: strings.TrimSpace(os.Getenv("OPENAI_KEY")),
		Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

// GenerationConfig selects the generation backend and its default options.
type GenerationConfig struct {
	Backend          string
	MaxLength        int
	Temperature      float64
	NumCandidates    int
	DegradedFallback bool
}

// Generation backends selectable via GENERATOR_BACKEND.
const (
	BackendArk    = "ark"
	BackendOpenAI = "openai"
	BackendStub   = "stub"
)

func loadGenerationConfig(ai AIConfig, openAI OpenAIConfig) (GenerationConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("GENERATOR_BACKEND", ""))
	if backend == "" {
		switch {
		case ai.Enabled():
			backend = BackendArk
		case openAI.Enabled():
			backend = BackendOpenAI
		default:
			backend = BackendStub
		}
	}
	switch backend {
	case BackendArk, BackendOpenAI, BackendStub:
	default:
		return GenerationConfig{}, fmt.Errorf("invalid GENERATOR_BACKEND value: %q", backend)
	}

	maxLength := 240
	if override, err := parseOptionalIntEnv("GEN_MAX_LENGTH"); err != nil {
		return GenerationConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return GenerationConfig{}, fmt.Errorf("GEN_MAX_LENGTH must be positive, got %d", *override)
		}
		maxLength = *override
	}

	temperature := 0.0
	if override, err := parseOptionalFloatEnv("GEN_TEMPERATURE"); err != nil {
		return GenerationConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 2 {
			return GenerationConfig{}, fmt.Errorf("GEN_TEMPERATURE must be within [0,2], got %f", *override)
		}
		temperature = *override
	}

	candidates := 1
	if override, err := parseOptionalIntEnv("GEN_NUM_CANDIDATES"); err != nil {
		return GenerationConfig{}, err
	} else if override != nil {
		if *override < 1 || *override > 5 {
			return GenerationConfig{}, fmt.Errorf("GEN_NUM_CANDIDATES must be within [1,5], got %d", *override)
		}
		candidates = *override
	}

	degraded, err := parseBoolEnv("DEGRADED_FALLBACK", true)
	if err != nil {
		return GenerationConfig{}, err
	}

	return GenerationConfig{
		Backend:          backend,
		MaxLength:        maxLength,
		Temperature:      temperature,
		NumCandidates:    candidates,
		DegradedFallback: degraded,
	}, nil
}

// HistoryConfig bounds the in-memory session history.
type HistoryConfig struct {
	// Limit caps records kept per session; zero means unbounded.
	Limit int
}

func loadHistoryConfig() (HistoryConfig, error) {
	limit := 0
	if override, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return HistoryConfig{}, fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", *override)
		}
		limit = *override
	}
	return HistoryConfig{Limit: limit}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
