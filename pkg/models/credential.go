package models

import "time"

// CredentialProvider names the external service a credential belongs to.
type CredentialProvider string

const (
	CredentialProviderGmail CredentialProvider = "gmail"
	CredentialProviderSlack CredentialProvider = "slack"
)

// Credential is a stored external-service token for a user. For chat
// credentials WorkspaceID holds the workspace (team) id.
type Credential struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Provider     CredentialProvider `json:"provider"`
	WorkspaceID  string             `json:"workspace_id,omitempty"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
