package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/orchestrator/internal/durable"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// DurableExecutionHandlers exposes the durable control plane over HTTP: create/start/pause/
// resume/step/stop a durable execution, and read back its details, tree, and root list.
// Live event streaming is handled separately by the websocket package, which subscribes
// through the same control plane.
type DurableExecutionHandlers struct {
	controlPlane *durable.ControlPlane
	logger       *logger.Logger
}

// NewDurableExecutionHandlers builds the handler set over a shared control plane.
func NewDurableExecutionHandlers(controlPlane *durable.ControlPlane, log *logger.Logger) *DurableExecutionHandlers {
	return &DurableExecutionHandlers{controlPlane: controlPlane, logger: log}
}

// HandleCreateExecution handles POST /api/v1/durable/executions
func (h *DurableExecutionHandlers) HandleCreateExecution(c *gin.Context) {
	var req struct {
		FlowID         string                 `json:"flow_id" binding:"required"`
		OwnerID        string                 `json:"owner_id" binding:"required"`
		Options        map[string]interface{} `json:"options"`
		Integration    map[string]interface{} `json:"integration"`
		Input          map[string]interface{} `json:"input"`
		ExternalEvents []struct {
			Name string `json:"name"`
		} `json:"external_events"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	in := durable.CreateInput{
		FlowID:      req.FlowID,
		OwnerID:     req.OwnerID,
		Options:     req.Options,
		Integration: req.Integration,
		Input:       req.Input,
	}

	execution, err := h.controlPlane.Create(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("Failed to create durable execution", "error", err, "flow_id", req.FlowID, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, TranslateError(err))
		return
	}

	h.logger.Info("Durable execution created", "execution_id", execution.ID, "flow_id", req.FlowID, "request_id", GetRequestID(c))
	respondJSON(c, http.StatusCreated, execution)
}

// HandleStartExecution handles POST /api/v1/durable/executions/{id}/start
func (h *DurableExecutionHandlers) HandleStartExecution(c *gin.Context) {
	h.runCommand(c, h.controlPlane.Start)
}

// HandleStopExecution handles POST /api/v1/durable/executions/{id}/stop
func (h *DurableExecutionHandlers) HandleStopExecution(c *gin.Context) {
	h.runCommand(c, h.controlPlane.Stop)
}

// HandlePauseExecution handles POST /api/v1/durable/executions/{id}/pause
func (h *DurableExecutionHandlers) HandlePauseExecution(c *gin.Context) {
	h.runCommand(c, h.controlPlane.Pause)
}

// HandleResumeExecution handles POST /api/v1/durable/executions/{id}/resume
func (h *DurableExecutionHandlers) HandleResumeExecution(c *gin.Context) {
	h.runCommand(c, h.controlPlane.Resume)
}

// HandleStepExecution handles POST /api/v1/durable/executions/{id}/step
func (h *DurableExecutionHandlers) HandleStepExecution(c *gin.Context) {
	h.runCommand(c, h.controlPlane.Step)
}

// runCommand is the shared body for every id-only control-plane action.
func (h *DurableExecutionHandlers) runCommand(c *gin.Context, fn func(ctx context.Context, executionID string) error) {
	executionID := c.Param("id")
	if executionID == "" {
		respondAPIError(c, ErrMissingParameter)
		return
	}
	if err := fn(c.Request.Context(), executionID); err != nil {
		h.logger.Error("Durable execution command failed", "error", err, "execution_id", executionID, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, TranslateError(err))
		return
	}
	respondJSON(c, http.StatusAccepted, gin.H{"execution_id": executionID})
}

// HandleGetExecutionDetails handles GET /api/v1/durable/executions/{id}
func (h *DurableExecutionHandlers) HandleGetExecutionDetails(c *gin.Context) {
	executionID := c.Param("id")
	if executionID == "" {
		respondAPIError(c, ErrMissingParameter)
		return
	}

	details, err := h.controlPlane.GetExecutionDetails(c.Request.Context(), executionID)
	if err != nil {
		h.logger.Error("Failed to get durable execution details", "error", err, "execution_id", executionID, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, TranslateError(err))
		return
	}
	respondJSON(c, http.StatusOK, details)
}

// HandleGetExecutionsTree handles GET /api/v1/durable/executions/{id}/tree
func (h *DurableExecutionHandlers) HandleGetExecutionsTree(c *gin.Context) {
	rootID := c.Param("id")
	if rootID == "" {
		respondAPIError(c, ErrMissingParameter)
		return
	}

	nodes, err := h.controlPlane.GetExecutionsTree(c.Request.Context(), rootID)
	if err != nil {
		h.logger.Error("Failed to get execution tree", "error", err, "root_execution_id", rootID, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, TranslateError(err))
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"nodes": nodes})
}

// HandleGetRootExecutions handles GET /api/v1/durable/flows/{flowId}/executions
func (h *DurableExecutionHandlers) HandleGetRootExecutions(c *gin.Context) {
	flowID := c.Param("flowId")
	if flowID == "" {
		respondAPIError(c, ErrMissingParameter)
		return
	}

	limit := getQueryInt(c, "limit", 50)

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondAPIError(c, NewAPIError("INVALID_BEFORE", "before must be an RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		before = &parsed
	}

	roots, err := h.controlPlane.GetRootExecutions(c.Request.Context(), flowID, limit, before)
	if err != nil {
		h.logger.Error("Failed to list root executions", "error", err, "flow_id", flowID, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, TranslateError(err))
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"roots": roots, "limit": limit})
}
