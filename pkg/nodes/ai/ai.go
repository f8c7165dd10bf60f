// Package ai implements the AI_TRANSFORM node: a prompt template rendered with
// the node input and sent to the generative text provider. Provider failures
// degrade to a fallback message instead of failing the run.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/gemini"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/dukex/flowforge/pkg/template"
)

const (
	// MaxRetries is the number of attempts after the first one.
	MaxRetries = 3
	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay = time.Second

	// NoContentMessage is returned when the provider answers without text.
	NoContentMessage = "AI returned no content."
)

// Config is the typed configuration of an AI_TRANSFORM node.
type Config struct {
	PromptTemplate  string `json:"prompt_template"`
	FallbackMessage string `json:"fallback_message,omitempty"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Node implements AI_TRANSFORM.
type Node struct {
	generator       protocol.Generator
	apiKey          string
	defaultFallback string
	sleep           SleepFunc
	logger          *slog.Logger
}

// NewNode creates an AI node bound to generator. An empty apiKey short-circuits
// every execution to the fallback message.
func NewNode(generator protocol.Generator, cfg config.Gemini, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}

	fallback := cfg.FallbackMessage
	if strings.TrimSpace(fallback) == "" {
		fallback = config.DefaultAIFallbackMessage
	}

	return &Node{
		generator:       generator,
		apiKey:          cfg.APIKey,
		defaultFallback: fallback,
		sleep:           Sleep,
		logger:          logger.With("module", "ai_transform"),
	}
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Type returns the node type.
func (n *Node) Type() models.NodeType {
	return models.NodeTypeAITransform
}

// Execute renders the prompt and calls the provider with retry and backoff.
func (n *Node) Execute(ctx context.Context, req protocol.Request) (any, error) {
	var cfg Config

	err := nodes.DecodeConfig(req.Config, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.PromptTemplate == "" {
		return nil, nodes.MissingConfig(models.NodeTypeAITransform, "prompt_template")
	}

	fallback := n.fallbackMessage(cfg)

	if n.apiKey == "" || n.generator == nil {
		n.logger.WarnContext(ctx, "no AI provider key configured, returning fallback", "node_id", req.NodeID)

		return fallback, nil
	}

	prompt := RenderPrompt(cfg.PromptTemplate, req.Input)

	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		text, err := n.generator.GenerateContent(ctx, prompt)
		if err == nil {
			if text == "" {
				return NoContentMessage, nil
			}

			return text, nil
		}

		lastErr = err

		var apiErr *gemini.APIError
		if !errors.As(err, &apiErr) || !apiErr.Retriable() || attempt == MaxRetries {
			break
		}

		delay := Backoff(attempt, apiErr.RetryAfter)

		n.logger.WarnContext(ctx, "AI provider call failed, retrying",
			"node_id", req.NodeID,
			"status", apiErr.StatusCode,
			"attempt", attempt+1,
			"delay", delay,
		)

		err = n.sleep(ctx, delay)
		if err != nil {
			return nil, err
		}
	}

	n.logger.WarnContext(ctx, "AI provider unavailable, returning fallback", "node_id", req.NodeID, "error", lastErr)

	return fmt.Sprintf("%s (%s)", fallback, lastErr.Error()), nil
}

func (n *Node) fallbackMessage(cfg Config) string {
	if strings.TrimSpace(cfg.FallbackMessage) != "" {
		return cfg.FallbackMessage
	}

	return n.defaultFallback
}

// RenderPrompt replaces the first {{input}} token with the input: raw when it is
// a string, JSON otherwise.
func RenderPrompt(promptTemplate string, input any) string {
	return strings.Replace(promptTemplate, "{{input}}", template.Stringify(input), 1)
}

// Backoff returns the delay before the next attempt. A positive numeric
// retry-after (seconds) wins over the exponential schedule.
func Backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		seconds, err := strconv.ParseFloat(strings.TrimSpace(retryAfter), 64)
		if err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
		}
	}

	return BaseDelay << attempt
}
