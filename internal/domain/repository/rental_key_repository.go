package repository

import (
	"context"

	"github.com/flowforge/orchestrator/pkg/models"
)

// RentalKeyFilter narrows admin listings of rental keys
type RentalKeyFilter struct {
	Provider  *models.LLMProviderType
	Status    *models.ResourceStatus
	OwnerID   *string
	CreatedBy *string
	Limit     int
	Offset    int
}

// RentalKeyRepository defines the interface for rental key resource operations
type RentalKeyRepository interface {
	// CreateRentalKey creates a rental key resource, encrypting the plain API key
	CreateRentalKey(ctx context.Context, key *models.RentalKeyResource, plainAPIKey string) error

	// GetRentalKey retrieves a rental key by its resource ID
	GetRentalKey(ctx context.Context, resourceID string) (*models.RentalKeyResource, error)

	// GetRentalKeysByOwner retrieves all rental keys owned by a user
	GetRentalKeysByOwner(ctx context.Context, ownerID string) ([]*models.RentalKeyResource, error)

	// GetRentalKeysByProvider retrieves rental keys for a specific LLM provider
	GetRentalKeysByProvider(ctx context.Context, ownerID string, provider models.LLMProviderType) ([]*models.RentalKeyResource, error)

	// UpdateRentalKey updates a rental key resource
	UpdateRentalKey(ctx context.Context, key *models.RentalKeyResource) error

	// DeleteRentalKey removes a rental key resource
	DeleteRentalKey(ctx context.Context, resourceID string) error

	// GetDecryptedAPIKey returns the decrypted provider API key
	GetDecryptedAPIKey(ctx context.Context, resourceID string) (string, error)

	// RotateAPIKey replaces the stored API key
	RotateAPIKey(ctx context.Context, resourceID string, newPlainAPIKey string) error

	// RecordUsage records one usage event against the key
	RecordUsage(ctx context.Context, resourceID string, usage *models.RentalKeyUsageRecord) error

	// GetUsageHistory returns recent usage records, newest first
	GetUsageHistory(ctx context.Context, resourceID string, limit int, offset int) ([]*models.RentalKeyUsageRecord, error)

	// GetUsageHistoryByTimeRange returns usage records within [from, to]
	GetUsageHistoryByTimeRange(ctx context.Context, resourceID string, from, to string) ([]*models.RentalKeyUsageRecord, error)

	// GetUsageSummary returns aggregate token usage, total requests and total cost
	GetUsageSummary(ctx context.Context, resourceID string) (*models.MultimodalUsage, int64, float64, error)

	// ResetDailyUsage zeroes the per-day counters on all keys
	ResetDailyUsage(ctx context.Context) error

	// ResetMonthlyUsage zeroes the per-month counters on all keys
	ResetMonthlyUsage(ctx context.Context) error

	// GetAllRentalKeys lists keys across owners for admin views
	GetAllRentalKeys(ctx context.Context, filter RentalKeyFilter) ([]*models.RentalKeyResource, int64, error)

	// GetAllRentalKeysCount counts keys matching the filter
	GetAllRentalKeysCount(ctx context.Context, filter RentalKeyFilter) (int64, error)
}
