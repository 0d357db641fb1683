package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/orchestrator/pkg/models"
)

// ServiceAuditLogFilter narrows audit log listings
type ServiceAuditLogFilter struct {
	SystemKeyID        *uuid.UUID
	ServiceName        *string
	Action             *string
	ResourceType       *string
	ImpersonatedUserID *uuid.UUID
	DateFrom           *time.Time
	DateTo             *time.Time
	Limit              int
	Offset             int
}

// ServiceAuditLogRepository defines the interface for service audit log operations
type ServiceAuditLogRepository interface {
	// Create persists one audit log entry
	Create(ctx context.Context, log *models.ServiceAuditLog) error

	// FindAll lists entries matching the filter, newest first, with a total count
	FindAll(ctx context.Context, filter ServiceAuditLogFilter) ([]*models.ServiceAuditLog, int64, error)

	// DeleteOlderThan prunes entries created before the cutoff, returning how many were removed
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
