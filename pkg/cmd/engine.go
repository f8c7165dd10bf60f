package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/credentials"
	"github.com/dukex/flowforge/pkg/dedupe"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/gemini"
	"github.com/dukex/flowforge/pkg/metrics"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/dukex/flowforge/pkg/rag"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Engine is the assembled runtime shared by the CLI commands and the API.
type Engine struct {
	Config      config.Config
	Logger      *slog.Logger
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Executor    *workflow.Executor
	Validator   *workflow.Validator
	Indexer     *rag.Indexer
	Dedupe      dedupe.Store
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer

	tracerProvider *sdktrace.TracerProvider
}

// NewEngine opens storage and the event bus named in cfg and binds every
// registered node to the configured providers.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Engine, error) {
	cfg = cfg.WithDefaults()

	store, err := NewPersistence(ctx, logger, cfg.Runtime.DatabaseURL)
	if err != nil {
		return nil, err
	}

	engine := &Engine{Config: cfg, Logger: logger, Persistence: store}

	engine.EventBus, err = NewEventBus(cfg.Runtime.EventBus, cfg.Runtime.KafkaBrokers, logger)
	if err != nil {
		_ = engine.Close(ctx)

		return nil, err
	}

	if cfg.Runtime.RedisURL != "" {
		engine.Dedupe, err = dedupe.NewRedisStore(ctx, cfg.Runtime.RedisURL, dedupe.DefaultTTL)
		if err != nil {
			_ = engine.Close(ctx)

			return nil, err
		}
	} else {
		engine.Dedupe = dedupe.NewMemoryStore(dedupe.DefaultTTL)
	}

	opts := make([]workflow.Option, 0, 3)

	if cfg.Runtime.Tracing {
		engine.tracerProvider, err = otelhelper.NewTracerProvider(ctx, serviceName)
		if err != nil {
			_ = engine.Close(ctx)

			return nil, fmt.Errorf("failed to create tracer provider: %w", err)
		}

		opts = append(opts, workflow.WithTracer(engine.tracerProvider.Tracer("flowforge/workflow")))
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine.Metrics = metrics.NewCollector(promRegistry)
	engine.Gatherer = promRegistry
	opts = append(opts, workflow.WithMetrics(engine.Metrics))

	if engine.EventBus != nil {
		opts = append(opts, workflow.WithEventPublisher(engine.EventBus))
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini, httpClient, logger)
	if err != nil {
		_ = engine.Close(ctx)

		return nil, err
	}

	engine.Registry = NewRegistry(logger)
	engine.Indexer = rag.NewIndexer(geminiClient, store.VectorRepository(), logger)

	nodeSet, err := engine.Registry.Build(protocol.Dependencies{
		Logger:      logger,
		Config:      cfg,
		HTTPClient:  httpClient,
		Generator:   geminiClient,
		Retriever:   rag.NewRetriever(geminiClient, store.VectorRepository()),
		Credentials: credentials.NewManager(store.CredentialRepository(), cfg.Google, httpClient, logger),
	})
	if err != nil {
		_ = engine.Close(ctx)

		return nil, err
	}

	engine.Executor = workflow.NewExecutor(store.WorkflowRepository(), store.RunRepository(), nodeSet, logger, opts...)
	engine.Validator = workflow.NewValidator(store.WorkflowRepository(), engine.Registry)

	return engine, nil
}

// Close releases every resource the engine opened.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error

	if e.tracerProvider != nil {
		errs = append(errs, e.tracerProvider.Shutdown(ctx))
	}

	if e.Dedupe != nil {
		errs = append(errs, e.Dedupe.Close())
	}

	if e.EventBus != nil {
		errs = append(errs, e.EventBus.Close())
	}

	if e.Persistence != nil {
		errs = append(errs, e.Persistence.Close(ctx))
	}

	return errors.Join(errs...)
}
