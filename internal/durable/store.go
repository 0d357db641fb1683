package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// ErrExecutionNotFound is returned when an execution row does not exist.
var ErrExecutionNotFound = errors.New("durable: execution not found")

// RootExecutionSummary is one row of GetRootExecutions, with the tree aggregates
// (levels, totalNested) derived from the closure rooted at the row.
type RootExecutionSummary struct {
	*durablemodels.ExecutionModel
	Levels      int `json:"levels"`
	TotalNested int `json:"total_nested"`
}

// TreeNode is one entry of a BFS-ordered execution tree.
type TreeNode struct {
	ID       string                          `json:"id"`
	ParentID *string                         `json:"parent_id,omitempty"`
	Level    int                             `json:"level"`
	Row      *durablemodels.ExecutionModel   `json:"row"`
}

// ExecutionStore persists execution rows, status transitions, the parent/child tree, and
// claim/recovery bookkeeping, all through Bun over Postgres.
type ExecutionStore struct {
	db  bun.IDB
	log *logger.Logger
}

// NewExecutionStore builds a store over any bun.IDB (a *bun.DB or an in-flight bun.Tx).
func NewExecutionStore(db bun.IDB, log *logger.Logger) *ExecutionStore {
	return &ExecutionStore{db: db, log: log}
}

// Create is an idempotent upsert by id: a conflict on the primary key is treated as success,
// since the idempotency key for creation is the execution ID itself.
func (s *ExecutionStore) Create(ctx context.Context, row *durablemodels.ExecutionModel) error {
	if row.ID == "" {
		row.ID = durablemodels.NewExecutionID()
	}
	if row.RootExecutionID == "" {
		row.RootExecutionID = row.ID
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: create execution: %w", err)
	}
	return nil
}

// Get loads an execution row by id.
func (s *ExecutionStore) Get(ctx context.Context, id string) (*durablemodels.ExecutionModel, error) {
	row := new(durablemodels.ExecutionModel)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("durable: get execution %s: %w", id, err)
	}
	return row, nil
}

// Delete removes an execution row. Children are left untouched: their lifetime is
// independent of the parent's.
func (s *ExecutionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*durablemodels.ExecutionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: delete execution %s: %w", id, err)
	}
	return nil
}

// StatusUpdate is the atomic single-row update payload for updateExecutionStatus.
type StatusUpdate struct {
	ID           string
	Status       durablemodels.ExecutionStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	ErrorNodeID  *string
}

// UpdateExecutionStatus performs the atomic single-row status transition. Terminal statuses
// (completed, failed, stopped) never transition out again; callers that violate this get a
// normal SQL no-op row count of zero, which is surfaced as an error so the workflow layer
// notices.
func (s *ExecutionStore) UpdateExecutionStatus(ctx context.Context, u StatusUpdate) error {
	q := s.db.NewUpdate().
		Model((*durablemodels.ExecutionModel)(nil)).
		Set("status = ?", u.Status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", u.ID).
		Where("status NOT IN (?)", bun.In([]durablemodels.ExecutionStatus{
			durablemodels.ExecutionStatusCompleted,
			durablemodels.ExecutionStatusFailed,
			durablemodels.ExecutionStatusStopped,
		}))

	if u.StartedAt != nil {
		q = q.Set("started_at = ?", *u.StartedAt)
	}
	if u.CompletedAt != nil {
		q = q.Set("completed_at = ?", *u.CompletedAt)
	}
	if u.ErrorMessage != nil {
		q = q.Set("error_message = ?", *u.ErrorMessage)
	}
	if u.ErrorNodeID != nil {
		q = q.Set("error_node_id = ?", *u.ErrorNodeID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: update execution status %s: %w", u.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the row doesn't exist, or it's already terminal: both are treated as a
		// logged no-op rather than an error.
		if s.log != nil {
			s.log.WarnContext(ctx, "durable: status update affected no rows", "execution_id", u.ID, "status", u.Status)
		}
	}
	return nil
}

// RecordFailure increments the recovery counters after a sweeper-driven retry.
func (s *ExecutionStore) RecordFailure(ctx context.Context, id string, reason string) error {
	now := time.Now()
	_, err := s.db.NewUpdate().
		Model((*durablemodels.ExecutionModel)(nil)).
		Set("failure_count = failure_count + 1").
		Set("last_failure_reason = ?", reason).
		Set("last_failure_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: record failure %s: %w", id, err)
	}
	return nil
}

// GetRootExecutions returns roots (parent_execution_id IS NULL) for a flow, newest-first,
// with per-row (levels, totalNested) aggregates computed from the closure rooted at each row.
func (s *ExecutionStore) GetRootExecutions(ctx context.Context, flowID string, limit int, afterCreatedAt *time.Time) ([]*RootExecutionSummary, error) {
	var roots []*durablemodels.ExecutionModel
	q := s.db.NewSelect().
		Model(&roots).
		Where("flow_id = ?", flowID).
		Where("parent_execution_id IS NULL").
		OrderExpr("created_at DESC").
		Limit(limit)
	if afterCreatedAt != nil {
		q = q.Where("created_at < ?", *afterCreatedAt)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("durable: get root executions: %w", err)
	}

	out := make([]*RootExecutionSummary, 0, len(roots))
	for _, r := range roots {
		levels, total, err := s.treeAggregates(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &RootExecutionSummary{ExecutionModel: r, Levels: levels, TotalNested: total})
	}
	return out, nil
}

func (s *ExecutionStore) treeAggregates(ctx context.Context, rootID string) (levels int, total int, err error) {
	var row struct {
		MaxDepth sql.NullInt64 `bun:"max_depth"`
		Count    int64         `bun:"count"`
	}
	err = s.db.NewSelect().
		Model((*durablemodels.ExecutionModel)(nil)).
		ColumnExpr("max(execution_depth) AS max_depth").
		ColumnExpr("count(*) AS count").
		Where("root_execution_id = ?", rootID).
		Where("id != ?", rootID).
		Scan(ctx, &row)
	if err != nil {
		return 0, 0, fmt.Errorf("durable: tree aggregates for %s: %w", rootID, err)
	}
	if row.MaxDepth.Valid {
		levels = int(row.MaxDepth.Int64)
	}
	total = int(row.Count)
	return levels, total, nil
}

// GetChildExecutions returns the direct children of a parent execution.
func (s *ExecutionStore) GetChildExecutions(ctx context.Context, parentID string) ([]*durablemodels.ExecutionModel, error) {
	var rows []*durablemodels.ExecutionModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("parent_execution_id = ?", parentID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable: get child executions of %s: %w", parentID, err)
	}
	return rows, nil
}

// GetExecutionTree returns a BFS-ordered flat array of (id, parentId, level, row) built by
// in-memory traversal of a single bulk fetch filtered by root_execution_id.
func (s *ExecutionStore) GetExecutionTree(ctx context.Context, rootID string) ([]TreeNode, error) {
	var rows []*durablemodels.ExecutionModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("root_execution_id = ?", rootID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable: get execution tree for %s: %w", rootID, err)
	}

	byParent := make(map[string][]*durablemodels.ExecutionModel)
	var root *durablemodels.ExecutionModel
	for _, r := range rows {
		if r.ID == rootID {
			root = r
			continue
		}
		if r.ParentExecutionID != nil {
			byParent[*r.ParentExecutionID] = append(byParent[*r.ParentExecutionID], r)
		}
	}
	if root == nil {
		return nil, ErrExecutionNotFound
	}

	out := []TreeNode{{ID: root.ID, ParentID: nil, Level: 0, Row: root}}
	queue := []struct {
		id    string
		level int
	}{{root.ID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range byParent[cur.id] {
			parentID := cur.id
			out = append(out, TreeNode{ID: child.ID, ParentID: &parentID, Level: cur.level + 1, Row: child})
			queue = append(queue, struct {
				id    string
				level int
			}{child.ID, cur.level + 1})
		}
	}
	return out, nil
}

// MaxExecutionDepth is the hard ceiling on execution tree depth.
const MaxExecutionDepth = 100

// ErrMaxDepthExceeded is returned when spawning a child would cross MaxExecutionDepth.
var ErrMaxDepthExceeded = errors.New("durable: maximum execution depth exceeded")
