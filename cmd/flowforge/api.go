package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger *slog.Logger
	engine *cmd.Engine
}

func NewAPI(logger *slog.Logger, engine *cmd.Engine) *API {
	return &API{logger: logger, engine: engine}
}

func (a *API) App() *fiber.App {
	e := a.engine

	handlers := web.NewAPIHandlers(web.Dependencies{
		Workflows:     services.NewWorkflow(e.Persistence, e.Validator),
		Runs:          services.NewRun(e.Persistence, e.Executor),
		Documents:     services.NewDocument(e.Indexer),
		ChatEvents:    services.NewChatEvents(e.Persistence.WorkflowRepository(), e.Executor, e.Dedupe, e.Metrics, a.logger),
		Registry:      e.Registry,
		Gatherer:      e.Gatherer,
		SigningSecret: e.Config.Slack.SigningSecret,
		Logger:        a.logger,
	})

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowForge API")
	})

	handlers.Routes(app)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}

// subscribeRunEvents logs finished runs published on the event bus.
func subscribeRunEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	err := bus.Handle(events.WorkflowRunCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.WorkflowRunCompleted)
		if ok {
			logger.InfoContext(ctx, "Run completed", "workflow_id", completed.WorkflowID, "run_id", completed.RunID, "duration_ms", completed.DurationMs)
		}

		return nil
	})
	if err != nil {
		return err
	}

	err = bus.Handle(events.WorkflowRunFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.WorkflowRunFailed)
		if ok {
			logger.WarnContext(ctx, "Run failed", "workflow_id", failed.WorkflowID, "run_id", failed.RunID, "error", failed.Error)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}
