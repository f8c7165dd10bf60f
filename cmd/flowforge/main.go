// Package main provides the flowforge command line: the API server and one-shot
// workflow commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewCommand().Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewCommand builds the root command with its subcommands.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowforge",
		Usage:                 "Run and manage node-graph workflows",
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			RunCommand(),
			ImportCommand(),
			ValidateCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	def := config.Default()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Storage URL: postgres://... or a file store directory",
			Value:   def.Runtime.DatabaseURL,
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Run event bus (gochannel, kafka, none)",
			Value:   def.Runtime.EventBus,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka brokers for the kafka event bus",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for chat event de-duplication; in-memory when empty",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   def.Runtime.LogLevel,
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Usage:   "Generative text provider API key",
			Sources: cli.EnvVars("GEMINI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "gemini-base-url",
			Value:   def.Gemini.BaseURL,
			Sources: cli.EnvVars("GEMINI_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "gemini-model",
			Value:   def.Gemini.Model,
			Sources: cli.EnvVars("GEMINI_MODEL"),
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Value:   def.Gemini.EmbeddingModel,
			Sources: cli.EnvVars("GEMINI_EMBEDDING_MODEL"),
		},
		&cli.StringFlag{
			Name:    "ai-fallback-message",
			Usage:   "Message returned by AI nodes when the provider is unavailable",
			Value:   def.Gemini.FallbackMessage,
			Sources: cli.EnvVars("AI_FALLBACK_MESSAGE"),
		},
		&cli.StringFlag{
			Name:    "google-client-id",
			Sources: cli.EnvVars("GOOGLE_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:    "google-client-secret",
			Sources: cli.EnvVars("GOOGLE_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:    "google-token-url",
			Value:   def.Google.TokenURL,
			Sources: cli.EnvVars("GOOGLE_TOKEN_URL"),
		},
		&cli.StringFlag{
			Name:    "gmail-endpoint",
			Value:   def.Google.GmailEndpoint,
			Sources: cli.EnvVars("GMAIL_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "slack-api-url",
			Value:   def.Slack.APIURL,
			Sources: cli.EnvVars("SLACK_API_URL"),
		},
		&cli.StringFlag{
			Name:    "slack-signing-secret",
			Sources: cli.EnvVars("SLACK_SIGNING_SECRET"),
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Timeout of outbound provider and HTTP node requests",
			Value:   def.HTTPTimeout,
			Sources: cli.EnvVars("HTTP_TIMEOUT"),
		},
	}
}

// configFromCommand collects the provider and runtime settings of command.
func configFromCommand(command *cli.Command) config.Config {
	return config.Config{
		Gemini: config.Gemini{
			APIKey:          command.String("gemini-api-key"),
			BaseURL:         command.String("gemini-base-url"),
			Model:           command.String("gemini-model"),
			EmbeddingModel:  command.String("embedding-model"),
			FallbackMessage: command.String("ai-fallback-message"),
		},
		Google: config.Google{
			ClientID:      command.String("google-client-id"),
			ClientSecret:  command.String("google-client-secret"),
			TokenURL:      command.String("google-token-url"),
			GmailEndpoint: command.String("gmail-endpoint"),
		},
		Slack: config.Slack{
			APIURL:        command.String("slack-api-url"),
			SigningSecret: command.String("slack-signing-secret"),
		},
		Runtime: config.Runtime{
			DatabaseURL:  command.String("database-url"),
			EventBus:     command.String("event-bus"),
			KafkaBrokers: command.StringSlice("kafka-brokers"),
			RedisURL:     command.String("redis-url"),
			Port:         command.Int("port"),
			LogLevel:     command.String("log-level"),
			Tracing:      command.Bool("tracing"),
		},
		HTTPTimeout: command.Duration("http-timeout"),
	}.WithDefaults()
}
