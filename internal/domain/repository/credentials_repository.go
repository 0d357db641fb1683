package repository

import (
	"context"

	"github.com/flowforge/orchestrator/pkg/models"
)

// CredentialsRepository defines the interface for credentials resource operations
type CredentialsRepository interface {
	// CreateCredentials creates a new credentials resource
	CreateCredentials(ctx context.Context, cred *models.CredentialsResource) error

	// GetCredentials retrieves a credentials resource by its resource ID
	GetCredentials(ctx context.Context, resourceID string) (*models.CredentialsResource, error)

	// GetCredentialsByOwner retrieves all credentials owned by a user
	GetCredentialsByOwner(ctx context.Context, ownerID string) ([]*models.CredentialsResource, error)

	// GetCredentialsByProvider retrieves credentials for a specific provider
	GetCredentialsByProvider(ctx context.Context, ownerID, provider string) ([]*models.CredentialsResource, error)

	// UpdateCredentials updates an existing credentials resource
	UpdateCredentials(ctx context.Context, cred *models.CredentialsResource) error

	// UpdateEncryptedData replaces the encrypted payload of a credentials resource
	UpdateEncryptedData(ctx context.Context, resourceID string, encryptedData map[string]string) error

	// DeleteCredentials removes a credentials resource
	DeleteCredentials(ctx context.Context, resourceID string) error

	// IncrementUsageCount bumps the usage counter
	IncrementUsageCount(ctx context.Context, resourceID string) error

	// LogCredentialAccess records an access audit entry
	LogCredentialAccess(ctx context.Context, resourceID, action, actorID, actorType string, metadata map[string]interface{}) error
}
