package serviceapi

import (
	"github.com/flowforge/orchestrator/internal/application/engine"
	"github.com/flowforge/orchestrator/internal/application/systemkey"
	"github.com/flowforge/orchestrator/internal/domain/repository"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
	"github.com/flowforge/orchestrator/pkg/crypto"
	"github.com/flowforge/orchestrator/pkg/executor"
)

// Operations bundles the repositories and managers every service-API (and REST/gRPC) handler
// needs, so a single struct can be threaded through HandleX constructors instead of each one
// taking its own long parameter list. It is a plain aggregate, not a service with its own
// state: callers build one per request-serving component and share it across handlers.
type Operations struct {
	WorkflowRepo    repository.WorkflowRepository
	ExecutionRepo   repository.ExecutionRepository
	TriggerRepo     repository.TriggerRepository
	CredentialsRepo repository.CredentialsRepository

	ExecutionMgr    *engine.ExecutionManager
	ExecutorManager executor.Manager

	EncryptionSvc *crypto.EncryptionService
	AuditService  *systemkey.AuditService

	Logger *logger.Logger
}
