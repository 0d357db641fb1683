package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/domain/repository"
	"github.com/flowforge/orchestrator/internal/infrastructure/storage/models"
)

// FindAllWithFilters retrieves workflows matching the optional filters, newest first.
func (r *WorkflowRepository) FindAllWithFilters(ctx context.Context, filters repository.WorkflowFilters, limit, offset int) ([]*models.WorkflowModel, error) {
	var workflows []*models.WorkflowModel

	query := r.db.NewSelect().
		Model(&workflows).
		Where("w.deleted_at IS NULL")
	query = applyWorkflowFilters(query, filters)

	err := query.
		Order("w.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find workflows: %w", err)
	}
	return workflows, nil
}

// CountWithFilters returns the count of workflows matching the filters.
func (r *WorkflowRepository) CountWithFilters(ctx context.Context, filters repository.WorkflowFilters) (int, error) {
	query := r.db.NewSelect().
		Model((*models.WorkflowModel)(nil)).
		Where("w.deleted_at IS NULL")
	query = applyWorkflowFilters(query, filters)

	count, err := query.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count workflows: %w", err)
	}
	return count, nil
}

func applyWorkflowFilters(query *bun.SelectQuery, filters repository.WorkflowFilters) *bun.SelectQuery {
	if filters.Status != nil {
		query = query.Where("w.status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		if filters.IncludeUnowned {
			query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("w.created_by = ?", *filters.CreatedBy).
					WhereOr("w.created_by IS NULL")
			})
		} else {
			query = query.Where("w.created_by = ?", *filters.CreatedBy)
		}
	}
	return query
}

// AssignResource attaches a resource to a workflow under an alias. Re-assigning the same
// resource updates the alias and access type in place.
func (r *WorkflowRepository) AssignResource(ctx context.Context, workflowID uuid.UUID, resource *models.WorkflowResourceModel, assignedBy *uuid.UUID) error {
	resource.WorkflowID = workflowID
	resource.AssignedBy = assignedBy
	resource.AssignedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(resource).
		On("CONFLICT (workflow_id, resource_id) DO UPDATE").
		Set("alias = EXCLUDED.alias").
		Set("access_type = EXCLUDED.access_type").
		Set("assigned_at = EXCLUDED.assigned_at").
		Set("assigned_by = EXCLUDED.assigned_by").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to assign resource: %w", err)
	}
	return nil
}

// UnassignResource detaches a resource from a workflow.
func (r *WorkflowRepository) UnassignResource(ctx context.Context, workflowID, resourceID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("workflow_id = ?", workflowID).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to unassign resource: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UnassignResourceFromAllWorkflows detaches a resource everywhere, returning how many
// assignments were removed. Used when a resource is deleted.
func (r *WorkflowRepository) UnassignResourceFromAllWorkflows(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign resource from workflows: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetWorkflowResources lists a workflow's resource assignments.
func (r *WorkflowRepository) GetWorkflowResources(ctx context.Context, workflowID uuid.UUID) ([]*models.WorkflowResourceModel, error) {
	var resources []*models.WorkflowResourceModel
	err := r.db.NewSelect().
		Model(&resources).
		Where("workflow_id = ?", workflowID).
		Order("assigned_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow resources: %w", err)
	}
	return resources, nil
}

// UpdateResourceAlias renames a resource's alias within one workflow.
func (r *WorkflowRepository) UpdateResourceAlias(ctx context.Context, workflowID, resourceID uuid.UUID, newAlias string) error {
	res, err := r.db.NewUpdate().
		Model((*models.WorkflowResourceModel)(nil)).
		Set("alias = ?", newAlias).
		Where("workflow_id = ?", workflowID).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update resource alias: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResourceExists reports whether a resource is assigned to a workflow.
func (r *WorkflowRepository) ResourceExists(ctx context.Context, workflowID, resourceID uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("workflow_id = ?", workflowID).
		Where("resource_id = ?", resourceID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check resource assignment: %w", err)
	}
	return exists, nil
}

// GetResourceByAlias resolves one of a workflow's resources by its alias.
func (r *WorkflowRepository) GetResourceByAlias(ctx context.Context, workflowID uuid.UUID, alias string) (*models.WorkflowResourceModel, error) {
	resource := new(models.WorkflowResourceModel)
	err := r.db.NewSelect().
		Model(resource).
		Where("workflow_id = ?", workflowID).
		Where("alias = ?", alias).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get resource by alias: %w", err)
	}
	return resource, nil
}
