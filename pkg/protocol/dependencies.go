package protocol

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukex/flowforge/pkg/config"
)

// Dependencies contains the collaborators node factories may bind to.
type Dependencies struct {
	Logger      *slog.Logger
	Config      config.Config
	HTTPClient  *http.Client
	Generator   Generator
	Retriever   Retriever
	Credentials Credentials
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Retriever returns the joined context most similar to a question, scoped to a user.
type Retriever interface {
	RetrieveContext(ctx context.Context, userID, question string, topK int) (string, error)
}

// Credentials hands out usable access tokens for external services.
type Credentials interface {
	GmailToken(ctx context.Context, userID string) (string, error)
	SlackToken(ctx context.Context, userID, teamID string) (string, error)
}
