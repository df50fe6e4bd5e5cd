// Package app assembles the application: database pool, Genkit runtime,
// model client, stores, and the chat pipeline. Construction is explicit and
// ordered; every component receives its dependencies through its constructor.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosmicworks/ragchat/db"
	"github.com/cosmicworks/ragchat/internal/cache"
	"github.com/cosmicworks/ragchat/internal/chat"
	"github.com/cosmicworks/ragchat/internal/config"
	"github.com/cosmicworks/ragchat/internal/knowledge"
	"github.com/cosmicworks/ragchat/internal/llm"
	"github.com/cosmicworks/ragchat/internal/log"
	"github.com/cosmicworks/ragchat/internal/observability"
	"github.com/cosmicworks/ragchat/internal/session"
	"github.com/cosmicworks/ragchat/internal/source"
	"github.com/cosmicworks/ragchat/internal/sqlc"
	"github.com/cosmicworks/ragchat/internal/tokens"
)

// classificationMaxTokens caps the one-word source classification answer.
const classificationMaxTokens = 250

// App is the assembled application.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	LLM       *llm.Client
	Sessions  *session.Registry
	Knowledge *knowledge.Store
	Cache     *cache.Cache
	Chat      *chat.Service

	logger  log.Logger
	cleanup []func()
}

// New builds the full application from configuration. The returned cleanup
// function releases every resource in reverse construction order.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (app *App, cleanup func(), err error) {
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := a.setupTracing(ctx); err != nil {
		return nil, nil, err
	}
	if err := a.setupDB(ctx); err != nil {
		return nil, nil, err
	}
	a.setupGenkit(ctx)
	if err := a.setupLLM(); err != nil {
		return nil, nil, err
	}
	if err := a.setupPipeline(); err != nil {
		return nil, nil, err
	}

	return a, a.close, nil
}

func (a *App) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// setupTracing registers the OTLP exporter before Genkit initialization so
// the tracer provider is ready when the first span starts.
func (a *App) setupTracing(ctx context.Context) error {
	shutdown, err := observability.Setup(ctx, a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	a.cleanup = append(a.cleanup, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			a.logger.Warn("failed to shut down tracer provider", "error", err)
		}
	})
	return nil
}

// setupDB runs migrations and opens the connection pool.
func (a *App) setupDB(ctx context.Context) error {
	if err := db.Migrate(a.Config.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(a.Config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	a.DBPool = pool
	a.cleanup = append(a.cleanup, pool.Close)
	return nil
}

func (a *App) setupGenkit(ctx context.Context) {
	a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	a.Embedder = googlegenai.GoogleAIEmbedder(a.Genkit, a.Config.EmbedderModel)
}

func (a *App) setupLLM() error {
	client, err := llm.New(a.Genkit, llm.Config{
		ModelName: "googleai/" + a.Config.ModelName,
		Embedder:  a.Embedder,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}
	a.LLM = client
	return nil
}

// setupPipeline builds the stores and the chat service on top of the pool
// and the model client.
func (a *App) setupPipeline() error {
	counter, err := tokens.NewCounter()
	if err != nil {
		return fmt.Errorf("creating token counter: %w", err)
	}

	queries := sqlc.New(a.DBPool)

	store := session.NewStore(queries, a.DBPool, a.logger)
	a.Sessions = session.NewRegistry(store, a.logger)

	a.Knowledge = knowledge.NewStore(queries, a.LLM, counter, a.logger)

	responseCache, err := cache.New(queries, a.LLM, a.Config.Cache.SimilarityThreshold, a.logger)
	if err != nil {
		return fmt.Errorf("creating response cache: %w", err)
	}
	a.Cache = responseCache

	selector := source.NewSelector(a.LLM, classificationMaxTokens, a.logger)

	svc, err := chat.New(chat.Config{
		Budgets:     a.Config.Budgets,
		Timeouts:    a.Config.Timeouts,
		Temperature: a.Config.Temperature,
		TopP:        a.Config.TopP,
	}, a.LLM, a.LLM, responseCache, selector, a.Knowledge, a.Sessions, counter, a.logger)
	if err != nil {
		return fmt.Errorf("creating chat service: %w", err)
	}
	a.Chat = svc
	return nil
}
