// Package credentials hands out usable provider access tokens, refreshing
// expiring email tokens through the OAuth token endpoint.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshWindow is how close to expiry an access token is refreshed.
const RefreshWindow = 60 * time.Second

// ErrRefreshTokenMissing is returned when an expiring credential cannot be refreshed.
var ErrRefreshTokenMissing = errors.New("Missing Gmail refresh token. Reconnect Gmail.")

// Manager implements protocol.Credentials over a credential repository.
type Manager struct {
	repo       persistence.CredentialRepository
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	refreshes  singleflight.Group
}

// NewManager creates a credential manager using cfg for the OAuth client.
func NewManager(repo persistence.CredentialRepository, cfg config.Google, httpClient *http.Client, logger *slog.Logger) *Manager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Manager{
		repo: repo,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		logger:     logger.With("module", "credentials"),
		now:        time.Now,
	}
}

// GmailToken returns a Gmail access token for userID, refreshed if it is
// missing an expiry or expires within RefreshWindow.
func (m *Manager) GmailToken(ctx context.Context, userID string) (string, error) {
	credential, err := m.repo.GetCredential(ctx, userID, models.CredentialProviderGmail, "")
	if err != nil {
		return "", err
	}

	if !m.needsRefresh(credential) {
		return credential.AccessToken, nil
	}

	token, err, _ := m.refreshes.Do(credential.ID, func() (any, error) {
		return m.refresh(ctx, credential)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// SlackToken returns the bot token of userID for the workspace teamID.
func (m *Manager) SlackToken(ctx context.Context, userID, teamID string) (string, error) {
	credential, err := m.repo.GetCredential(ctx, userID, models.CredentialProviderSlack, teamID)
	if err != nil {
		return "", err
	}

	return credential.AccessToken, nil
}

func (m *Manager) needsRefresh(credential *models.Credential) bool {
	if credential.ExpiresAt == nil {
		return true
	}

	return credential.ExpiresAt.Sub(m.now()) < RefreshWindow
}

func (m *Manager) refresh(ctx context.Context, credential *models.Credential) (string, error) {
	if credential.RefreshToken == "" {
		return "", ErrRefreshTokenMissing
	}

	m.logger.InfoContext(ctx, "refreshing access token", "credential_id", credential.ID, "user_id", credential.UserID)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	token, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: credential.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh Gmail token: %w", err)
	}

	var expiresAt *time.Time

	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		expiresAt = &expiry
	}

	err = m.repo.UpdateCredential(ctx, credential.ID, token.AccessToken, expiresAt)
	if err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return token.AccessToken, nil
}
