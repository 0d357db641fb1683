package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowforge/orchestrator/pkg/models"
)

// ServiceKeyFilter narrows admin listings of service keys
type ServiceKeyFilter struct {
	UserID    *uuid.UUID
	Status    *string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

// ServiceKeyRepository defines the interface for service key operations
type ServiceKeyRepository interface {
	// Create persists a new service key
	Create(ctx context.Context, key *models.ServiceKey) error

	// FindByID retrieves a key by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceKey, error)

	// FindByPrefix retrieves keys sharing a lookup prefix
	FindByPrefix(ctx context.Context, prefix string) ([]*models.ServiceKey, error)

	// FindByUserID retrieves all keys belonging to a user
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ServiceKey, error)

	// FindAll lists keys matching the filter, with a total count
	FindAll(ctx context.Context, filter ServiceKeyFilter) ([]*models.ServiceKey, int64, error)

	// Update updates a key's mutable fields
	Update(ctx context.Context, key *models.ServiceKey) error

	// Delete removes a key
	Delete(ctx context.Context, id uuid.UUID) error

	// Revoke marks a key revoked
	Revoke(ctx context.Context, id uuid.UUID) error

	// UpdateLastUsed bumps the usage bookkeeping
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error

	// CountByUserID counts keys belonging to a user
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
