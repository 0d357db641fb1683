package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowforge/orchestrator/pkg/models"
)

// SystemKeyFilter narrows admin listings of system keys
type SystemKeyFilter struct {
	ServiceName *string
	Status      *string
	CreatedBy   *uuid.UUID
	Limit       int
	Offset      int
}

// SystemKeyRepository defines the interface for system key operations
type SystemKeyRepository interface {
	// Create persists a new system key
	Create(ctx context.Context, key *models.SystemKey) error

	// FindByID retrieves a key by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.SystemKey, error)

	// FindByPrefix retrieves keys sharing a lookup prefix
	FindByPrefix(ctx context.Context, prefix string) ([]*models.SystemKey, error)

	// FindAll lists keys matching the filter, with a total count
	FindAll(ctx context.Context, filter SystemKeyFilter) ([]*models.SystemKey, int64, error)

	// Update updates a key's mutable fields
	Update(ctx context.Context, key *models.SystemKey) error

	// Delete removes a key
	Delete(ctx context.Context, id uuid.UUID) error

	// Revoke marks a key revoked
	Revoke(ctx context.Context, id uuid.UUID) error

	// UpdateLastUsed bumps the usage bookkeeping
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error

	// Count counts all system keys
	Count(ctx context.Context) (int64, error)
}
