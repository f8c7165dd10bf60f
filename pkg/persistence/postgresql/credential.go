package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// CredentialRepository stores external-service tokens.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sql.DB, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{db: db, logger: logger}
}

// GetCredential returns the most recently updated matching credential.
func (r *CredentialRepository) GetCredential(ctx context.Context, userID string, provider models.CredentialProvider, workspaceID string) (*models.Credential, error) {
	var (
		credential models.Credential
		kind       string
		expiresAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, workspace_id, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE user_id = $1 AND provider = $2 AND ($3 = '' OR workspace_id = $3)
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`, userID, string(provider), workspaceID).Scan(
		&credential.ID,
		&credential.UserID,
		&kind,
		&credential.WorkspaceID,
		&credential.AccessToken,
		&credential.RefreshToken,
		&expiresAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.CredentialError{UserID: userID, Provider: string(provider), Err: persistence.ErrCredentialNotFound}
		}

		return nil, &persistence.CredentialError{UserID: userID, Provider: string(provider), Err: err}
	}

	credential.Provider = models.CredentialProvider(kind)
	credential.ExpiresAt = timePtr(expiresAt)

	return &credential, nil
}

func (r *CredentialRepository) SaveCredential(ctx context.Context, credential *models.Credential) error {
	credential.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, user_id, provider, workspace_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			provider = EXCLUDED.provider,
			workspace_id = EXCLUDED.workspace_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`,
		credential.ID,
		credential.UserID,
		string(credential.Provider),
		credential.WorkspaceID,
		credential.AccessToken,
		credential.RefreshToken,
		credential.ExpiresAt,
		credential.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential %s: %w", credential.ID, err)
	}

	return nil
}

func (r *CredentialRepository) UpdateCredential(ctx context.Context, id string, accessToken string, expiresAt *time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE credentials
		SET access_token = $2, expires_at = $3, updated_at = $4
		WHERE id = $1
	`, id, accessToken, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update credential %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update credential %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("credential %s: %w", id, persistence.ErrCredentialNotFound)
	}

	return nil
}
