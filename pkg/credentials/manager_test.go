package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenServer struct {
	*httptest.Server

	hits    atomic.Int32
	release chan struct{}
}

func newTokenServer(t *testing.T, block bool) *tokenServer {
	t.Helper()

	ts := &tokenServer{}
	if block {
		ts.release = make(chan struct{})
	}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		if ts.release != nil {
			<-ts.release
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(ts.Close)

	return ts
}

func newManager(t *testing.T, tokenURL string) (*Manager, persistence.CredentialRepository) {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	repo := store.CredentialRepository()
	cfg := config.Google{ClientID: "client-id", ClientSecret: "client-secret", TokenURL: tokenURL}

	return NewManager(repo, cfg, nil, log.Discard()), repo
}

func saveGmail(t *testing.T, repo persistence.CredentialRepository, refreshToken string, expiresAt *time.Time) {
	t.Helper()

	require.NoError(t, repo.SaveCredential(context.Background(), &models.Credential{
		ID:           "cred-1",
		UserID:       "user-1",
		Provider:     models.CredentialProviderGmail,
		AccessToken:  "stale",
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}))
}

func TestGmailToken_ValidTokenIsReturned(t *testing.T) {
	server := newTokenServer(t, false)
	manager, repo := newManager(t, server.URL)

	expiry := time.Now().Add(time.Hour)
	saveGmail(t, repo, "refresh-1", &expiry)

	token, err := manager.GmailToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "stale", token)
	assert.Zero(t, server.hits.Load())
}

func TestGmailToken_RefreshesNearExpiry(t *testing.T) {
	server := newTokenServer(t, false)
	manager, repo := newManager(t, server.URL)

	expiry := time.Now().Add(30 * time.Second)
	saveGmail(t, repo, "refresh-1", &expiry)

	token, err := manager.GmailToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(1), server.hits.Load())

	stored, err := repo.GetCredential(context.Background(), "user-1", models.CredentialProviderGmail, "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
	require.NotNil(t, stored.ExpiresAt)
	assert.True(t, stored.ExpiresAt.After(time.Now().Add(50*time.Minute)))
}

func TestGmailToken_RefreshesWithoutExpiry(t *testing.T) {
	server := newTokenServer(t, false)
	manager, repo := newManager(t, server.URL)

	saveGmail(t, repo, "refresh-1", nil)

	token, err := manager.GmailToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestGmailToken_MissingRefreshToken(t *testing.T) {
	server := newTokenServer(t, false)
	manager, repo := newManager(t, server.URL)

	saveGmail(t, repo, "", nil)

	_, err := manager.GmailToken(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrRefreshTokenMissing)
	assert.Equal(t, "Missing Gmail refresh token. Reconnect Gmail.", err.Error())
	assert.Zero(t, server.hits.Load())
}

func TestGmailToken_MissingCredential(t *testing.T) {
	manager, _ := newManager(t, "http://127.0.0.1:0")

	_, err := manager.GmailToken(context.Background(), "nobody")
	assert.ErrorIs(t, err, persistence.ErrCredentialNotFound)
}

func TestGmailToken_TokenEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	manager, repo := newManager(t, server.URL)
	saveGmail(t, repo, "refresh-1", nil)

	_, err := manager.GmailToken(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh Gmail token")
}

func TestGmailToken_ConcurrentRefreshIsSingleFlighted(t *testing.T) {
	server := newTokenServer(t, true)
	manager, repo := newManager(t, server.URL)

	saveGmail(t, repo, "refresh-1", nil)

	const callers = 5

	var wg sync.WaitGroup

	tokens := make([]string, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := manager.GmailToken(context.Background(), "user-1")
			assert.NoError(t, err)

			tokens[i] = token
		}()
	}

	require.Eventually(t, func() bool { return server.hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(server.release)
	wg.Wait()

	assert.Equal(t, int32(1), server.hits.Load())

	for _, token := range tokens {
		assert.Equal(t, "fresh", token)
	}
}

func TestSlackToken(t *testing.T) {
	manager, repo := newManager(t, "http://127.0.0.1:0")

	require.NoError(t, repo.SaveCredential(context.Background(), &models.Credential{
		ID: "slack-1", UserID: "user-1", Provider: models.CredentialProviderSlack, WorkspaceID: "T1", AccessToken: "xoxb-1",
	}))

	token, err := manager.SlackToken(context.Background(), "user-1", "T1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-1", token)

	_, err = manager.SlackToken(context.Background(), "user-1", "T2")
	assert.ErrorIs(t, err, persistence.ErrCredentialNotFound)
}

func TestNeedsRefresh(t *testing.T) {
	manager := &Manager{now: func() time.Time { return time.Unix(1000, 0) }}

	far := time.Unix(1000+120, 0)
	near := time.Unix(1000+59, 0)

	assert.False(t, manager.needsRefresh(&models.Credential{ExpiresAt: &far}))
	assert.True(t, manager.needsRefresh(&models.Credential{ExpiresAt: &near}))
	assert.True(t, manager.needsRefresh(&models.Credential{}))
}
