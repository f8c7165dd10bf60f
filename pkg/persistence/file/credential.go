package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

const credentialsCollection = "credentials"

// CredentialRepository stores one document per credential.
type CredentialRepository struct {
	docs *documents
}

// GetCredential returns the most recently updated matching credential.
func (cr *CredentialRepository) GetCredential(_ context.Context, userID string, provider models.CredentialProvider, workspaceID string) (*models.Credential, error) {
	ids, err := cr.docs.ids(credentialsCollection)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Credential, 0, 1)

	for _, id := range ids {
		var credential models.Credential

		err := cr.docs.read(credentialsCollection, id, &credential)
		if err != nil {
			return nil, fmt.Errorf("failed to read credential %s: %w", id, err)
		}

		if credential.UserID != userID || credential.Provider != provider {
			continue
		}

		if workspaceID != "" && credential.WorkspaceID != workspaceID {
			continue
		}

		matches = append(matches, &credential)
	}

	if len(matches) == 0 {
		return nil, &persistence.CredentialError{UserID: userID, Provider: string(provider), Err: persistence.ErrCredentialNotFound}
	}

	slices.SortFunc(matches, func(a, b *models.Credential) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return matches[0], nil
}

func (cr *CredentialRepository) SaveCredential(_ context.Context, credential *models.Credential) error {
	credential.UpdatedAt = time.Now().UTC()

	return cr.docs.write(credentialsCollection, credential.ID, credential)
}

func (cr *CredentialRepository) UpdateCredential(_ context.Context, id string, accessToken string, expiresAt *time.Time) error {
	var credential models.Credential

	err := cr.docs.update(credentialsCollection, id, &credential, func() error {
		credential.AccessToken = accessToken
		credential.ExpiresAt = expiresAt
		credential.UpdatedAt = time.Now().UTC()

		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credential %s: %w", id, persistence.ErrCredentialNotFound)
	}

	return err
}
