// Package slack implements the SLACK node, which posts a message to a channel
// with the bot credential of the connected workspace.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
	slackapi "github.com/slack-go/slack"
)

// ActionSend is the only supported action.
const ActionSend = "SEND"

// Source marks workflow inputs built from Slack events.
const Source = "slack"

// Retry-after bounds applied to the single rate-limit retry.
const (
	MinRetryAfter = time.Second
	MaxRetryAfter = 5 * time.Second
)

var (
	// ErrRateLimitExceeded is returned when the retry is rate limited as well.
	ErrRateLimitExceeded = errors.New("Slack rate limit exceeded")

	// ErrUnsupportedAction is returned for actions other than SEND.
	ErrUnsupportedAction = errors.New("unsupported Slack action")
)

// APIError is a response with ok=false.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return "Slack API error: " + e.Code
}

// Config is the typed configuration of a SLACK node.
type Config struct {
	Action  string `json:"action,omitempty"`
	TeamID  string `json:"team_id,omitempty"`
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Result is the output of a successful send.
type Result struct {
	TeamID  string `json:"team_id"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	OK      bool   `json:"ok"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Node implements SLACK. Its config is expected to be template-resolved.
type Node struct {
	credentials protocol.Credentials
	apiURL      string
	httpClient  *http.Client
	sleep       SleepFunc
	logger      *slog.Logger
}

// NewNode creates a Slack node calling apiURL.
func NewNode(credentials protocol.Credentials, apiURL string, httpClient *http.Client, logger *slog.Logger) *Node {
	if apiURL == "" {
		apiURL = config.DefaultSlackAPIURL
	}

	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Node{
		credentials: credentials,
		apiURL:      apiURL,
		httpClient:  httpClient,
		sleep:       sleep,
		logger:      logger.With("module", "slack"),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeSlack
}

// Execute posts config.text to config.channel in config.team_id. Team and
// channel fall back to the triggering event when the run came from Slack.
func (n *Node) Execute(ctx context.Context, req protocol.Request) (any, error) {
	var cfg Config

	err := nodes.DecodeConfig(req.Config, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Action != "" && !strings.EqualFold(cfg.Action, ActionSend) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, cfg.Action)
	}

	teamID, channel := cfg.TeamID, cfg.Channel
	eventTeam, eventChannel, fromSlack := EventOrigin(req.WorkflowInput)

	if fromSlack {
		if teamID == "" {
			teamID = eventTeam
		}

		if channel == "" {
			channel = eventChannel
		}
	}

	switch {
	case teamID == "":
		return nil, missing("team_id")
	case channel == "":
		return nil, missing("channel")
	case cfg.Text == "":
		return nil, missing("text")
	}

	if n.credentials == nil {
		return nil, fmt.Errorf("SLACK node has no credential source configured")
	}

	token, err := n.credentials.SlackToken(ctx, req.UserID, teamID)
	if err != nil {
		return nil, err
	}

	err = n.post(ctx, token, channel, cfg.Text)
	if err != nil {
		return nil, err
	}

	return &Result{TeamID: teamID, Channel: channel, Text: cfg.Text, OK: true}, nil
}

func (n *Node) post(ctx context.Context, token, channel, text string) error {
	client := slackapi.New(token, slackapi.OptionHTTPClient(n.httpClient), slackapi.OptionAPIURL(n.apiURL))

	err := postMessage(ctx, client, channel, text)

	var rateLimited *slackapi.RateLimitedError
	if !errors.As(err, &rateLimited) {
		return err
	}

	delay := ClampRetryAfter(rateLimited.RetryAfter)

	n.logger.WarnContext(ctx, "slack rate limited, retrying once", "channel", channel, "delay", delay)

	err = n.sleep(ctx, delay)
	if err != nil {
		return err
	}

	err = postMessage(ctx, client, channel, text)
	if errors.As(err, &rateLimited) {
		return fmt.Errorf("%w: retry after %s", ErrRateLimitExceeded, rateLimited.RetryAfter)
	}

	return err
}

func postMessage(ctx context.Context, client *slackapi.Client, channel, text string) error {
	_, _, err := client.PostMessageContext(ctx, channel, slackapi.MsgOptionText(text, false))
	if err == nil {
		return nil
	}

	var rateLimited *slackapi.RateLimitedError
	if errors.As(err, &rateLimited) {
		return err
	}

	var response slackapi.SlackErrorResponse
	if errors.As(err, &response) {
		return &APIError{Code: response.Err}
	}

	return fmt.Errorf("Slack request failed: %w", err)
}

// ClampRetryAfter bounds the wait to 1..5 seconds; zero means 1 second.
func ClampRetryAfter(d time.Duration) time.Duration {
	return max(MinRetryAfter, min(MaxRetryAfter, d))
}

// EventOrigin returns the team and channel of a workflow input built from a
// Slack event.
func EventOrigin(workflowInput any) (teamID, channel string, ok bool) {
	input, isMap := workflowInput.(map[string]any)
	if !isMap || input["source"] != Source {
		return "", "", false
	}

	teamID, _ = input["team_id"].(string)
	channel, _ = input["channel"].(string)

	return teamID, channel, true
}

func missing(field string) error {
	return &nodes.MissingConfigError{
		NodeType: models.NodeTypeSlack,
		Field:    field,
		Message:  fmt.Sprintf("Slack SEND requires '%s' in config.", field),
	}
}
