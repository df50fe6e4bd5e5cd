// Package llm provides the completion and embedding client used by the
// orchestration pipeline. It wraps Genkit generate calls with sampling
// configuration, retry with exponential backoff, and per-attempt rate
// limiting.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/cosmicworks/ragchat/internal/log"
)

var (
	// ErrEmptyModelName indicates no model name was configured.
	ErrEmptyModelName = errors.New("model name cannot be empty")

	// ErrNilEmbedder indicates no embedder was configured.
	ErrNilEmbedder = errors.New("embedder cannot be nil")

	// ErrEmptyEmbedding indicates the embedder returned no vector.
	ErrEmptyEmbedding = errors.New("embedder returned an empty embedding")
)

// Sampling holds the generation parameters for a single completion call.
// Different pipeline stages use different sampling profiles: grounded
// answering runs cold, source classification runs hot.
type Sampling struct {
	Temperature      float32
	TopP             float32
	MaxOutputTokens  int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Turn is one completed user/assistant exchange.
type Turn struct {
	User      string
	Assistant string
}

// Request describes a completion call.
type Request struct {
	SystemPrompt string
	Turns        []Turn
	Prompt       string
	Sampling     Sampling
}

// Usage reports token consumption for a completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Response is the result of a completion call.
type Response struct {
	Text  string
	Usage Usage
}

// Config configures a Client.
type Config struct {
	// ModelName is the full Genkit model name, e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// Embedder generates vectors for retrieval and caching.
	Embedder ai.Embedder

	// Retry controls backoff for transient failures. Zero value uses
	// DefaultRetryConfig.
	Retry RetryConfig

	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
}

// Client issues completion and embedding calls against a Genkit instance.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	g         *genkit.Genkit
	modelName string
	embedder  ai.Embedder
	retry     RetryConfig
	limiter   *rate.Limiter
	logger    log.Logger
}

// New creates a Client.
func New(g *genkit.Genkit, cfg Config, logger log.Logger) (*Client, error) {
	if cfg.ModelName == "" {
		return nil, ErrEmptyModelName
	}
	if cfg.Embedder == nil {
		return nil, ErrNilEmbedder
	}
	if logger == nil {
		logger = log.NewNop()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.InitialInterval == 0 {
		retryCfg = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		g:         g,
		modelName: cfg.ModelName,
		embedder:  cfg.Embedder,
		retry:     retryCfg,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Complete runs a completion call with the request's sampling profile and
// returns the generated text plus token usage.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]*ai.Message, 0, len(req.Turns)*2+1)
	for _, turn := range req.Turns {
		messages = append(messages,
			ai.NewUserMessage(ai.NewTextPart(turn.User)),
			ai.NewModelMessage(ai.NewTextPart(turn.Assistant)),
		)
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Prompt)))

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(messages...),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(req.Sampling.Temperature),
			TopP:             genai.Ptr(req.Sampling.TopP),
			MaxOutputTokens:  int32(req.Sampling.MaxOutputTokens), // #nosec G115
			FrequencyPenalty: genai.Ptr(req.Sampling.FrequencyPenalty),
			PresencePenalty:  genai.Ptr(req.Sampling.PresencePenalty),
		}),
	}
	if req.SystemPrompt != "" {
		opts = append(opts, ai.WithSystem(req.SystemPrompt))
	}

	resp, err := c.generateWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Response{Text: resp.Text()}
	if resp.Usage != nil {
		result.Usage = Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		}
	}

	c.logger.Debug("completion finished",
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
	)
	return result, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return resp.Embeddings[0].Embedding, nil
}
