package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "text-embedding-004"
	maxGeminiBatch     = 100
	taskType           = "SEMANTIC_SIMILARITY"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	Dimensions      int
	BatchSize       int
	RequestTimeout  time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Gemini calls the Gemini embedding API behind a circuit breaker. An open
// breaker surfaces as an error, which callers degrade to zero vectors.
type Gemini struct {
	models  contentEmbedder
	cfg     GeminiConfig
	breaker *gobreaker.CircuitBreaker[[][]float32]
	logger  zerolog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger zerolog.Logger) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, cfg, logger), nil
}

func newGemini(models contentEmbedder, cfg GeminiConfig, logger zerolog.Logger) *Gemini {
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxGeminiBatch {
		cfg.BatchSize = maxGeminiBatch
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	g := &Gemini{models: models, cfg: cfg, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "gemini-embed",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("encoder circuit breaker state changed")
		},
	})
	return g
}

func (g *Gemini) Name() string { return g.cfg.Model }

func (g *Gemini) Dimensions() int { return g.cfg.Dimensions }

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]
		vecs, err := g.breaker.Execute(func() ([][]float32, error) {
			return g.embedChunk(ctx, chunk)
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *Gemini) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t}},
		}
	}
	dims := int32(g.cfg.Dimensions)

	resp, err := g.models.EmbedContent(ctx, g.cfg.Model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), got)
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) != g.cfg.Dimensions {
			return nil, fmt.Errorf("embedding %d has wrong dimensionality", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
