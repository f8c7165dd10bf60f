// Package gmail implements the GMAIL node on top of the Gmail v1 API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Supported actions.
const (
	ActionRead = "READ"
	ActionSend = "SEND"
)

const (
	DefaultMaxResults = 5
	MinMaxResults     = 1
	MaxMaxResults     = 50

	me = "me"
)

var (
	// ErrMissingRecipient is returned by SEND when "to" is empty.
	ErrMissingRecipient = errors.New("GMAIL SEND requires 'to' in config.")

	// ErrUnsupportedAction is matched by UnsupportedActionError.
	ErrUnsupportedAction = errors.New("unsupported Gmail action")
)

// UnsupportedActionError reports an action other than READ or SEND.
type UnsupportedActionError struct {
	Action string
}

func (e *UnsupportedActionError) Error() string {
	return "Unsupported Gmail action: " + e.Action
}

func (e *UnsupportedActionError) Is(target error) bool {
	return target == ErrUnsupportedAction
}

// Config is the typed configuration of a GMAIL node.
type Config struct {
	Action     string  `json:"action"`
	Query      string  `json:"query,omitempty"`
	MaxResults any     `json:"max_results,omitempty"`
	To         string  `json:"to,omitempty"`
	Subject    string  `json:"subject,omitempty"`
	Body       *string `json:"body,omitempty"`
}

// Message is one entry of a READ result.
type Message struct {
	ID           string `json:"id"`
	ThreadID     string `json:"threadId"`
	Snippet      string `json:"snippet"`
	InternalDate string `json:"internalDate"`
	From         string `json:"from"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

// ReadResult is the output of READ.
type ReadResult struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

// SendResult is the output of SEND.
type SendResult struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Node implements GMAIL. Its config is expected to be template-resolved.
type Node struct {
	credentials protocol.Credentials
	endpoint    string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewNode creates a Gmail node calling endpoint (the API root URL).
func NewNode(credentials protocol.Credentials, endpoint string, httpClient *http.Client, logger *slog.Logger) *Node {
	if endpoint == "" {
		endpoint = config.DefaultGmailEndpoint
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Node{
		credentials: credentials,
		endpoint:    endpoint,
		httpClient:  httpClient,
		logger:      logger.With("module", "gmail"),
	}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeGmail
}

// Execute runs READ or SEND on behalf of the requesting user.
func (n *Node) Execute(ctx context.Context, req protocol.Request) (any, error) {
	var cfg Config

	err := nodes.DecodeConfig(req.Config, &cfg)
	if err != nil {
		return nil, err
	}

	action := strings.ToUpper(strings.TrimSpace(cfg.Action))
	if action != ActionRead && action != ActionSend {
		return nil, &UnsupportedActionError{Action: cfg.Action}
	}

	if n.credentials == nil {
		return nil, fmt.Errorf("GMAIL node has no credential source configured")
	}

	token, err := n.credentials.GmailToken(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	service, err := n.service(ctx, token)
	if err != nil {
		return nil, err
	}

	if action == ActionRead {
		return n.read(ctx, service, cfg)
	}

	return n.send(ctx, service, cfg, req.Input)
}

func (n *Node) service(ctx context.Context, accessToken string) (*gmailapi.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, n.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(n.endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}

	return service, nil
}

func (n *Node) read(ctx context.Context, service *gmailapi.Service, cfg Config) (*ReadResult, error) {
	maxResults := ClampMaxResults(cfg.MaxResults)

	list, err := service.Users.Messages.List(me).Q(cfg.Query).MaxResults(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Gmail API error: %w", err)
	}

	result := &ReadResult{Query: cfg.Query, Messages: make([]Message, 0, len(list.Messages))}

	for _, ref := range list.Messages {
		detail, err := service.Users.Messages.Get(me, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("Gmail API error: %w", err)
		}

		result.Messages = append(result.Messages, toMessage(detail))
	}

	result.Count = len(result.Messages)

	n.logger.DebugContext(ctx, "read messages", "query", cfg.Query, "count", result.Count)

	return result, nil
}

func (n *Node) send(ctx context.Context, service *gmailapi.Service, cfg Config, input any) (*SendResult, error) {
	to := strings.TrimSpace(cfg.To)
	if to == "" {
		return nil, ErrMissingRecipient
	}

	body, err := defaultBody(cfg.Body, input)
	if err != nil {
		return nil, err
	}

	sent, err := service.Users.Messages.Send(me, &gmailapi.Message{
		Raw: BuildRawEmail(to, cfg.Subject, body),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Gmail API error: %w", err)
	}

	n.logger.InfoContext(ctx, "sent email", "message_id", sent.Id)

	return &SendResult{To: to, Subject: cfg.Subject, ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// ClampMaxResults bounds max_results to 1..50. Numbers and numeric strings
// are accepted and truncated; anything else falls back to 5.
func ClampMaxResults(value any) int {
	var n float64

	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return DefaultMaxResults
		}

		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return DefaultMaxResults
		}

		n = parsed
	default:
		return DefaultMaxResults
	}

	if math.IsNaN(n) {
		return DefaultMaxResults
	}

	return int(max(MinMaxResults, min(MaxMaxResults, math.Trunc(n))))
}

// BuildRawEmail returns the base64url (unpadded) RFC 822 message.
func BuildRawEmail(to, subject, body string) string {
	message := strings.Join([]string{
		"To: " + to,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	return base64.RawURLEncoding.EncodeToString([]byte(message))
}

// FindBody returns the first text/plain body found depth-first.
func FindBody(part *gmailapi.MessagePart) (string, bool) {
	if part == nil {
		return "", false
	}

	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		decoded, err := decodeBase64URL(part.Body.Data)
		if err == nil {
			return decoded, true
		}
	}

	for _, child := range part.Parts {
		if body, ok := FindBody(child); ok {
			return body, true
		}
	}

	return "", false
}

func toMessage(detail *gmailapi.Message) Message {
	var headers []*gmailapi.MessagePartHeader
	if detail.Payload != nil {
		headers = detail.Payload.Headers
	}

	body, _ := FindBody(detail.Payload)

	return Message{
		ID:           detail.Id,
		ThreadID:     detail.ThreadId,
		Snippet:      detail.Snippet,
		InternalDate: strconv.FormatInt(detail.InternalDate, 10),
		From:         header(headers, "From"),
		To:           header(headers, "To"),
		Subject:      header(headers, "Subject"),
		Body:         body,
	}
}

func header(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}

	return ""
}

func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

// defaultBody uses the configured body, or the JSON form of the node input.
func defaultBody(configured *string, input any) (string, error) {
	if configured != nil {
		return *configured, nil
	}

	if input == nil {
		input = ""
	}

	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode email body: %w", err)
	}

	return string(data), nil
}
