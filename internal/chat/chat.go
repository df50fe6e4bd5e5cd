// Package chat orchestrates the retrieval-augmented answer pipeline: cache
// lookup, source resolution, conversation and retrieval context assembly,
// completion, and atomic persistence of the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/cosmicworks/ragchat/internal/config"
	"github.com/cosmicworks/ragchat/internal/llm"
	"github.com/cosmicworks/ragchat/internal/log"
	"github.com/cosmicworks/ragchat/internal/session"
	"github.com/cosmicworks/ragchat/internal/source"
)

// simpleSystemPrompt grounds plain completions that use no retrieval context.
const simpleSystemPrompt = `You are a cheerful intelligent assistant for the Cosmic Works Bike Company.
You answer as truthfully as possible.`

// groundedSystemPrompt precedes the retrieval context for RAG completions.
const groundedSystemPrompt = `You are an intelligent assistant for the Cosmic Works Bike Company.
You are designed to provide helpful answers to user questions about product, product category, customer and sales order information provided in JSON format in the below context information.

Instructions:
- When responding with any customer information always include the customerId in your response.

Context information:`

// summarizeSystemPrompt produces a short label for a session.
const summarizeSystemPrompt = `Summarize the text below in one or two words to use as a label in a button on a web page. Output words only. Summarize the text below here:`

// summarizeMaxTokens caps the summarization completion.
const summarizeMaxTokens = 200

// nonAlphanumeric strips everything a session label should not contain.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// Completer issues completion calls.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ResponseCache is the semantic completion cache.
type ResponseCache interface {
	Lookup(ctx context.Context, prompt string) (string, bool, error)
	Insert(ctx context.Context, prompt, completion string) error
	Clear(ctx context.Context) error
}

// SourceResolver decides which collection grounds a question.
type SourceResolver interface {
	Resolve(ctx context.Context, req source.Request, question string) (source.Decision, error)
}

// Retriever assembles retrieval context from a collection.
type Retriever interface {
	SearchContext(ctx context.Context, collection source.Collection, embedding []float32, maxTokens int) (string, error)
}

// Sessions is the durable conversation store.
type Sessions interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Snapshot, error)
	Append(ctx context.Context, id uuid.UUID, name *string, msg *session.Message) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

// Config configures a Service.
type Config struct {
	Budgets  config.Budgets
	Timeouts config.Timeouts

	// Temperature and TopP apply to answer completions. Classification and
	// summarization use their own profiles.
	Temperature float32
	TopP        float32
}

func (c Config) validate() error {
	if c.Budgets.MaxCompletionTokens < 1 || c.Budgets.MaxContextTokens < 1 || c.Budgets.MaxConversationTokens < 1 {
		return config.ErrInvalidTokenBudget
	}
	if c.Timeouts.Completion <= 0 || c.Timeouts.Embedding <= 0 || c.Timeouts.Search <= 0 || c.Timeouts.Persistence <= 0 {
		return config.ErrInvalidTimeout
	}
	return nil
}

// Answer is the result of one orchestrated exchange.
type Answer struct {
	Text string

	// CacheHit reports that the completion came from the response cache
	// without a model call.
	CacheHit bool

	// Collection that grounded the answer; empty when retrieval was skipped.
	Collection source.Collection

	// Usage totals token consumption across the classification and answer
	// calls. Zero on cache hits.
	Usage llm.Usage
}

// Service sequences one conversational exchange end to end.
//
// Service is safe for concurrent use by multiple goroutines.
type Service struct {
	cfg       Config
	completer Completer
	embedder  Embedder
	cache     ResponseCache
	sources   SourceResolver
	retriever Retriever
	sessions  Sessions
	builder   *ContextBuilder
	logger    log.Logger
}

// New creates a Service.
func New(
	cfg Config,
	completer Completer,
	embedder Embedder,
	responseCache ResponseCache,
	sources SourceResolver,
	retriever Retriever,
	sessions Sessions,
	counter TokenCounter,
	logger log.Logger,
) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		cfg:       cfg,
		completer: completer,
		embedder:  embedder,
		cache:     responseCache,
		sources:   sources,
		retriever: retriever,
		sessions:  sessions,
		builder:   NewContextBuilder(counter),
		logger:    logger,
	}, nil
}

// Answer runs the full pipeline for one user prompt in a session:
//
//  1. Response cache lookup; a hit short-circuits every model call.
//  2. Source resolution (explicit, disabled, or model classification).
//  3. Conversation context fit under the conversation token budget.
//  4. Embedding of conversation plus prompt.
//  5. Vector retrieval trimmed to the context token budget.
//  6. Completion with the grounded system prompt.
//  7. Cache insert and atomic persistence of the exchange.
//
// cacheEnabled controls both the lookup and the insert for this exchange.
// Cache failures never fail the exchange; they downgrade to a miss and are
// logged. Returns session.ErrNotFound if the session does not exist.
func (s *Service) Answer(ctx context.Context, sessionID uuid.UUID, prompt string, src source.Request, cacheEnabled bool) (*Answer, error) {
	snap, err := s.getSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if cacheEnabled {
		if completion, ok := s.lookupCache(ctx, prompt); ok {
			answer := &Answer{Text: completion, CacheHit: true}
			if err := s.persistExchange(ctx, sessionID, prompt, src, cacheEnabled, answer); err != nil {
				return nil, err
			}
			return answer, nil
		}
	}

	decision, err := s.resolveSource(ctx, src, prompt)
	if err != nil {
		return nil, err
	}

	conversation := s.builder.Build(snap.Messages, s.cfg.Budgets.MaxConversationTokens)

	ragContext, err := s.retrieveContext(ctx, decision, conversation, prompt)
	if err != nil {
		return nil, err
	}

	resp, err := s.complete(ctx, conversation, ragContext, prompt)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Text:       resp.Text,
		Collection: decision.Collection,
		Usage: llm.Usage{
			PromptTokens:     decision.Usage.PromptTokens + resp.Usage.PromptTokens,
			CompletionTokens: decision.Usage.CompletionTokens + resp.Usage.CompletionTokens,
		},
	}

	if cacheEnabled {
		s.insertCache(ctx, prompt, answer.Text)
	}

	if err := s.persistExchange(ctx, sessionID, prompt, src, cacheEnabled, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// Ask runs a plain completion with no session, retrieval, or cache. Used for
// one-off questions.
func (s *Service) Ask(ctx context.Context, prompt string) (*Answer, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Completion)
	defer cancel()

	resp, err := s.completer.Complete(callCtx, llm.Request{
		SystemPrompt: simpleSystemPrompt,
		Prompt:       prompt,
		Sampling:     s.answerSampling(),
	})
	if err != nil {
		return nil, fmt.Errorf("completing prompt: %w", err)
	}
	return &Answer{Text: resp.Text, Usage: resp.Usage}, nil
}

// SummarizeSessionName generates a one-or-two-word label from text, strips
// everything but alphanumerics and spaces, and renames the session to it.
func (s *Service) SummarizeSessionName(ctx context.Context, sessionID uuid.UUID, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Completion)
	defer cancel()

	resp, err := s.completer.Complete(callCtx, llm.Request{
		SystemPrompt: summarizeSystemPrompt,
		Prompt:       text,
		Sampling: llm.Sampling{
			Temperature:      0,
			TopP:             1.0,
			MaxOutputTokens:  summarizeMaxTokens,
			FrequencyPenalty: -2,
			PresencePenalty:  -2,
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarizing session name: %w", err)
	}

	name := nonAlphanumeric.ReplaceAllString(resp.Text, "")
	if name == "" {
		name = "New chat"
	}

	persistCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Persistence)
	defer cancel()
	if err := s.sessions.Rename(persistCtx, sessionID, name); err != nil {
		return "", err
	}
	return name, nil
}

// ClearCache empties the response cache.
func (s *Service) ClearCache(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Persistence)
	defer cancel()
	return s.cache.Clear(callCtx)
}

func (s *Service) getSnapshot(ctx context.Context, sessionID uuid.UUID) (*session.Snapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Persistence)
	defer cancel()

	snap, err := s.sessions.Get(callCtx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return snap, nil
}

// lookupCache downgrades every failure to a miss: a broken cache must not
// break answering.
func (s *Service) lookupCache(ctx context.Context, prompt string) (string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Embedding)
	defer cancel()

	completion, hit, err := s.cache.Lookup(callCtx, prompt)
	if err != nil {
		s.logger.Warn("cache lookup failed, treating as miss", "error", err)
		return "", false
	}
	return completion, hit
}

func (s *Service) insertCache(ctx context.Context, prompt, completion string) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Embedding)
	defer cancel()

	if err := s.cache.Insert(callCtx, prompt, completion); err != nil {
		s.logger.Warn("cache insert failed, answer not cached", "error", err)
	}
}

func (s *Service) resolveSource(ctx context.Context, src source.Request, prompt string) (source.Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Completion)
	defer cancel()

	decision, err := s.sources.Resolve(callCtx, src, prompt)
	if err != nil {
		return source.Decision{}, fmt.Errorf("resolving source: %w", err)
	}
	return decision, nil
}

// retrieveContext embeds the conversation plus prompt and searches the chosen
// collection. Skipped entirely when the decision disables retrieval.
func (s *Service) retrieveContext(ctx context.Context, decision source.Decision, conversation []*session.Message, prompt string) (string, error) {
	if !decision.UseRetrieval {
		return "", nil
	}

	seed := prompt
	if len(conversation) > 0 {
		seed = joinMessages(conversation) + "\n" + prompt
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Embedding)
	vec, err := s.embedder.Embed(embedCtx, seed)
	cancel()
	if err != nil {
		return "", fmt.Errorf("embedding conversation: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Search)
	defer cancel()

	ragContext, err := s.retriever.SearchContext(searchCtx, decision.Collection, vec, s.cfg.Budgets.MaxContextTokens)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	return ragContext, nil
}

func (s *Service) complete(ctx context.Context, conversation []*session.Message, ragContext, prompt string) (*llm.Response, error) {
	systemPrompt := simpleSystemPrompt
	if ragContext != "" {
		systemPrompt = groundedSystemPrompt + "\n" + ragContext
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Completion)
	defer cancel()

	resp, err := s.completer.Complete(callCtx, llm.Request{
		SystemPrompt: systemPrompt,
		Turns:        toTurns(conversation),
		Prompt:       prompt,
		Sampling:     s.answerSampling(),
	})
	if err != nil {
		return nil, fmt.Errorf("completing prompt: %w", err)
	}
	return resp, nil
}

// persistExchange writes the prompt and completion as one exchange, charging
// its token usage to the session.
func (s *Service) persistExchange(ctx context.Context, sessionID uuid.UUID, prompt string, src source.Request, cacheEnabled bool, answer *Answer) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Persistence)
	defer cancel()

	err := s.sessions.Append(callCtx, sessionID, nil, &session.Message{
		Prompt:           prompt,
		Completion:       answer.Text,
		PromptTokens:     answer.Usage.PromptTokens,
		CompletionTokens: answer.Usage.CompletionTokens,
		SourceRequested:  src.String(),
		SourceCollection: string(answer.Collection),
		CacheEnabled:     cacheEnabled,
		CacheHit:         answer.CacheHit,
	})
	if err != nil {
		return fmt.Errorf("persisting exchange: %w", err)
	}
	return nil
}

func (s *Service) answerSampling() llm.Sampling {
	return llm.Sampling{
		Temperature:      s.cfg.Temperature,
		TopP:             s.cfg.TopP,
		MaxOutputTokens:  s.cfg.Budgets.MaxCompletionTokens,
		FrequencyPenalty: 0,
		PresencePenalty:  -2,
	}
}
