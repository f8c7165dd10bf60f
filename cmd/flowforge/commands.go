package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// withEngine opens the engine for the duration of fn.
func withEngine(ctx context.Context, command *cli.Command, fn func(engine *cmd.Engine) error) error {
	logger := log.WithModule("cli")

	engine, err := cmd.NewEngine(ctx, configFromCommand(command), logger)
	if err != nil {
		return err
	}

	defer func() {
		err := engine.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close engine", "error", err)
		}
	}()

	return fn(engine)
}

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   config.DefaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withEngine(ctx, command, func(engine *cmd.Engine) error {
				if engine.EventBus != nil {
					err := subscribeRunEvents(ctx, engine.EventBus, engine.Logger)
					if err != nil {
						return fmt.Errorf("failed to subscribe to run events: %w", err)
					}
				}

				engine.Logger.InfoContext(ctx, "Starting FlowForge API", "port", engine.Config.Runtime.Port)

				return NewAPI(engine.Logger, engine).Start(ctx, engine.Config.Runtime.Port)
			})
		},
	}
}

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a workflow once and print its output as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow-id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "User the run executes as; defaults to the workflow owner",
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Run input as JSON",
				Value: "null",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			var input any

			err := json.Unmarshal([]byte(command.String("input")), &input)
			if err != nil {
				return fmt.Errorf("invalid --input: %w", err)
			}

			return withEngine(ctx, command, func(engine *cmd.Engine) error {
				result, err := services.NewRun(engine.Persistence, engine.Executor).
					Start(ctx, command.String("workflow-id"), command.String("user-id"), input)
				if err != nil {
					return err
				}

				encoder := json.NewEncoder(command.Root().Writer)
				encoder.SetIndent("", "  ")

				return encoder.Encode(result.Output)
			})
		},
	}
}

func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load a YAML or JSON workflow definition into the store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.String("file")

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			return withEngine(ctx, command, func(engine *cmd.Engine) error {
				wf, err := services.NewWorkflow(engine.Persistence, engine.Validator).Import(ctx, data, filepath.Ext(path))
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(command.Root().Writer, "imported workflow %s (%s)\n", wf.ID, wf.Name)

				return err
			})
		},
	}
}

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a stored workflow for cycles, branch handles and node configs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow-id",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withEngine(ctx, command, func(engine *cmd.Engine) error {
				id := command.String("workflow-id")

				err := services.NewWorkflow(engine.Persistence, engine.Validator).Validate(ctx, id)
				if err != nil {
					var serviceErr *services.ServiceError
					if errors.As(err, &serviceErr) {
						return fmt.Errorf("workflow %s is invalid:\n%s", id, serviceErr.Message)
					}

					return err
				}

				_, err = fmt.Fprintf(command.Root().Writer, "workflow %s is valid\n", id)

				return err
			})
		},
	}
}
