// Package models holds the Bun table models backing the durable execution orchestrator.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	storagemodels "github.com/flowforge/orchestrator/internal/infrastructure/storage/models"
)

// ExecutionStatus is the lifecycle status of a durable execution row.
type ExecutionStatus string

const (
	ExecutionStatusCreated   ExecutionStatus = "created"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
)

// IsTerminal reports whether the status never transitions further.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusStopped:
		return true
	}
	return false
}

// ExecutionModel is one durable execution row.
type ExecutionModel struct {
	bun.BaseModel `bun:"table:orchestrator_executions,alias:oe"`

	ID                 string                       `bun:"id,pk" json:"id"`
	FlowID             string                       `bun:"flow_id,notnull" json:"flow_id"`
	OwnerID            string                       `bun:"owner_id,notnull" json:"owner_id"`
	RootExecutionID    string                       `bun:"root_execution_id,notnull" json:"root_execution_id"`
	ParentExecutionID  *string                      `bun:"parent_execution_id" json:"parent_execution_id,omitempty"`
	Status             ExecutionStatus              `bun:"status,notnull,default:'created'" json:"status"`
	CreatedAt          time.Time                    `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time                    `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	StartedAt          *time.Time                   `bun:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time                   `bun:"completed_at" json:"completed_at,omitempty"`
	ErrorMessage       *string                      `bun:"error_message" json:"error_message,omitempty"`
	ErrorNodeID        *string                      `bun:"error_node_id" json:"error_node_id,omitempty"`
	ExecutionDepth     int                          `bun:"execution_depth,notnull,default:0" json:"execution_depth"`
	Options            storagemodels.JSONBMap       `bun:"options,type:jsonb,default:'{}'" json:"options,omitempty"`
	Integration        storagemodels.JSONBMap       `bun:"integration,type:jsonb,default:'{}'" json:"integration,omitempty"`
	ExternalEvents      ExternalEventList           `bun:"external_events,type:jsonb,default:'[]'" json:"external_events,omitempty"`
	FailureCount       int                          `bun:"failure_count,notnull,default:0" json:"failure_count"`
	LastFailureReason  *string                      `bun:"last_failure_reason" json:"last_failure_reason,omitempty"`
	LastFailureAt      *time.Time                   `bun:"last_failure_at" json:"last_failure_at,omitempty"`
	ProcessingStartedAt *time.Time                  `bun:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingWorkerID *string                      `bun:"processing_worker_id" json:"processing_worker_id,omitempty"`
}

// ExternalEvent is an opaque externally supplied event attached at creation time.
type ExternalEvent struct {
	Name    string                 `json:"name"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ExternalEventList adapts a slice of ExternalEvent for a jsonb column, following the
// same Value/Scan pattern as storagemodels.JSONBMap.
type ExternalEventList []ExternalEvent

func (l ExternalEventList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ExternalEventList) Scan(value interface{}) error {
	if value == nil {
		*l = ExternalEventList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return errors.New("failed to scan ExternalEventList: unsupported type")
		}
	}
	if len(b) == 0 {
		*l = ExternalEventList{}
		return nil
	}
	return json.Unmarshal(b, l)
}

// NewExecutionID mints a fresh human-prefixed execution identity.
func NewExecutionID() string {
	return "exe_" + uuid.New().String()
}

// BeforeInsert fills identity defaults.
func (e *ExecutionModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.ID == "" {
		e.ID = NewExecutionID()
	}
	if e.RootExecutionID == "" {
		e.RootExecutionID = e.ID
	}
	if e.Options == nil {
		e.Options = make(storagemodels.JSONBMap)
	}
	if e.Integration == nil {
		e.Integration = make(storagemodels.JSONBMap)
	}
	return nil
}

// BeforeUpdate refreshes the mutation timestamp.
func (e *ExecutionModel) BeforeUpdate(ctx interface{}) error {
	e.UpdatedAt = time.Now()
	return nil
}

// ExecutionClaimStatus mirrors the legacy non-durable recovery path.
type ExecutionClaimStatus string

const (
	ClaimStatusActive   ExecutionClaimStatus = "active"
	ClaimStatusReleased ExecutionClaimStatus = "released"
	ClaimStatusExpired  ExecutionClaimStatus = "expired"
)

// ExecutionClaimModel is the legacy claim-lease compatibility shim; the durable-workflow
// recovery path (WorkflowStatusModel) is the actual source of truth for resumption.
type ExecutionClaimModel struct {
	bun.BaseModel `bun:"table:execution_claims,alias:ecl"`

	ExecutionID string                `bun:"execution_id,pk" json:"execution_id"`
	WorkerID    string                `bun:"worker_id,notnull" json:"worker_id"`
	ClaimedAt   time.Time             `bun:"claimed_at,notnull,default:current_timestamp" json:"claimed_at"`
	ExpiresAt   time.Time             `bun:"expires_at,notnull" json:"expires_at"`
	HeartbeatAt time.Time             `bun:"heartbeat_at,notnull,default:current_timestamp" json:"heartbeat_at"`
	Status      ExecutionClaimStatus  `bun:"status,notnull,default:'active'" json:"status"`
}

// WorkflowRuntimeStatus is the lifecycle of a workflow-runtime record.
type WorkflowRuntimeStatus string

const (
	WorkflowStatusPending   WorkflowRuntimeStatus = "pending"
	WorkflowStatusEnqueued  WorkflowRuntimeStatus = "enqueued"
	WorkflowStatusRunning   WorkflowRuntimeStatus = "running"
	WorkflowStatusSuccess   WorkflowRuntimeStatus = "success"
	WorkflowStatusError     WorkflowRuntimeStatus = "error"
	WorkflowStatusCancelled WorkflowRuntimeStatus = "cancelled"
)

// WorkflowStatusModel is the workflow-runtime's bookkeeping row: one per workflow instance
// (here, one per execution ID), the source of truth for crash resumption.
type WorkflowStatusModel struct {
	bun.BaseModel `bun:"table:workflow_status,alias:ws"`

	WorkflowID         string                 `bun:"workflow_id,pk" json:"workflow_id"`
	Name               string                 `bun:"name,notnull" json:"name"`
	QueueName          string                 `bun:"queue_name,notnull" json:"queue_name"`
	ApplicationVersion string                 `bun:"application_version,notnull" json:"application_version"`
	Status             WorkflowRuntimeStatus  `bun:"status,notnull,default:'pending'" json:"status"`
	Input              storagemodels.JSONBMap `bun:"input,type:jsonb,default:'{}'" json:"input,omitempty"`
	Result             storagemodels.JSONBMap `bun:"result,type:jsonb" json:"result,omitempty"`
	Error              *string                `bun:"error" json:"error,omitempty"`
	WorkerID           *string                `bun:"worker_id" json:"worker_id,omitempty"`
	CreatedAt          time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// BeforeInsert/BeforeUpdate keep timestamps current.
func (w *WorkflowStatusModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.Input == nil {
		w.Input = make(storagemodels.JSONBMap)
	}
	return nil
}

func (w *WorkflowStatusModel) BeforeUpdate(ctx interface{}) error {
	w.UpdatedAt = time.Now()
	return nil
}

// WorkflowStepModel is one checkpointed step result, keyed by (workflow_id, function_index).
type WorkflowStepModel struct {
	bun.BaseModel `bun:"table:workflow_steps,alias:wst"`

	WorkflowID    string                 `bun:"workflow_id,pk" json:"workflow_id"`
	FunctionIndex int                    `bun:"function_index,pk" json:"function_index"`
	StepName      string                 `bun:"step_name,notnull" json:"step_name"`
	Output        storagemodels.JSONBMap `bun:"output,type:jsonb" json:"output,omitempty"`
	Error         *string                `bun:"error" json:"error,omitempty"`
	CreatedAt     time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// WorkflowMessageModel backs send()/recv() inter-workflow messaging, idempotent on
// (recipient_workflow_id, topic, sender_step_index).
type WorkflowMessageModel struct {
	bun.BaseModel `bun:"table:workflow_messages,alias:wm"`

	ID                  int64                  `bun:"id,pk,autoincrement" json:"id"`
	RecipientWorkflowID string                 `bun:"recipient_workflow_id,notnull" json:"recipient_workflow_id"`
	Topic               string                 `bun:"topic,notnull" json:"topic"`
	SenderStepIndex     int                    `bun:"sender_step_index,notnull,default:-1" json:"sender_step_index"`
	Payload             storagemodels.JSONBMap `bun:"payload,type:jsonb" json:"payload,omitempty"`
	EnqueuedAt          time.Time              `bun:"enqueued_at,notnull,default:current_timestamp" json:"enqueued_at"`
	DeliveredAt         *time.Time             `bun:"delivered_at" json:"delivered_at,omitempty"`
}

// StreamModel is a single stream row: (workflow_id, stream_key, offset) is the dense,
// per-key unique key that also drives the Postgres NOTIFY trigger.
type StreamModel struct {
	bun.BaseModel `bun:"table:streams,alias:strm"`

	ID         int64                  `bun:"id,pk,autoincrement" json:"id"`
	WorkflowID string                 `bun:"workflow_id,notnull" json:"workflow_id"`
	StreamKey  string                 `bun:"stream_key,notnull" json:"stream_key"`
	Offset     int64                  `bun:"offset,notnull" json:"offset"`
	Value      storagemodels.JSONBMap `bun:"value,type:jsonb" json:"value,omitempty"`
	Closed     bool                   `bun:"closed,notnull,default:false" json:"closed"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// DurableQueueModel is one row of the durable FIFO of workflow-start tokens.
type DurableQueueModel struct {
	bun.BaseModel `bun:"table:durable_queue,alias:dq"`

	ID                 int64      `bun:"id,pk,autoincrement" json:"id"`
	QueueName          string     `bun:"queue_name,notnull" json:"queue_name"`
	WorkflowID         string     `bun:"workflow_id,notnull" json:"workflow_id"`
	ApplicationVersion string     `bun:"application_version,notnull" json:"application_version"`
	EnqueuedAt         time.Time  `bun:"enqueued_at,notnull,default:current_timestamp" json:"enqueued_at"`
	StartedAt          *time.Time `bun:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	ClaimedByWorkerID  *string    `bun:"claimed_by_worker_id" json:"claimed_by_worker_id,omitempty"`
}
