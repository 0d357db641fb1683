package server

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/application/auth"
	"github.com/flowforge/orchestrator/internal/application/engine"
	"github.com/flowforge/orchestrator/internal/application/filestorage"
	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/internal/application/rentalkey"
	"github.com/flowforge/orchestrator/internal/application/serviceapi"
	"github.com/flowforge/orchestrator/internal/application/servicekey"
	"github.com/flowforge/orchestrator/internal/application/systemkey"
	"github.com/flowforge/orchestrator/internal/application/trigger"
	"github.com/flowforge/orchestrator/internal/domain/repository"
	"github.com/flowforge/orchestrator/internal/durable"
	"github.com/flowforge/orchestrator/internal/infrastructure/api/rest"
	"github.com/flowforge/orchestrator/internal/infrastructure/cache"
	"github.com/flowforge/orchestrator/internal/infrastructure/storage"
	"github.com/flowforge/orchestrator/pkg/crypto"
	"github.com/flowforge/orchestrator/pkg/executor"
)

// DataLayer holds database connections and all repositories.
type DataLayer struct {
	DB         *bun.DB
	RedisCache *cache.RedisCache

	// Repositories
	WorkflowRepo    *storage.WorkflowRepository
	ExecutionRepo   *storage.ExecutionRepository
	EventRepo       *storage.EventRepository
	TriggerRepo     repository.TriggerRepository
	UserRepo        *storage.UserRepository
	FileRepo        *storage.FileRepository
	AccountRepo     *storage.AccountRepositoryImpl
	TransactionRepo *storage.TransactionRepositoryImpl
	ResourceRepo    *storage.ResourceRepositoryImpl
	PricingPlanRepo *storage.PricingPlanRepositoryImpl
	CredentialsRepo *storage.CredentialsRepositoryImpl
	ServiceKeyRepo  *storage.ServiceKeyRepositoryImpl
	SystemKeyRepo   *storage.SystemKeyRepoImpl
	AuditLogRepo    *storage.ServiceAuditLogRepoImpl
	RentalKeyRepo   *storage.RentalKeyRepositoryImpl
}

// AuthLayer holds authentication and authorization components.
type AuthLayer struct {
	AuthService       *auth.Service
	ProviderManager   *auth.ProviderManager
	ServiceKeyService *servicekey.Service
	AuthMiddleware    *rest.AuthMiddleware
	LoginRateLimiter  *rest.LoginRateLimiter
	EncryptionService *crypto.EncryptionService
	RentalKeyProvider *rentalkey.Provider
}

// ExecutionLayer holds workflow execution components.
type ExecutionLayer struct {
	ExecutorManager  executor.Manager
	ExecutionManager *engine.ExecutionManager
	ObserverManager  *observer.ObserverManager
	WSHub            *observer.WebSocketHub
}

// ServiceAPILayer holds Service API and gRPC components.
type ServiceAPILayer struct {
	SystemKeyService     *systemkey.Service
	AuditService         *systemkey.AuditService
	SystemAuthMiddleware *rest.SystemAuthMiddleware
	AuditMiddleware      *rest.AuditMiddleware
	Operations           *serviceapi.Operations
}

// TriggerLayer holds trigger management components.
type TriggerLayer struct {
	TriggerManager *trigger.Manager
}

// FileStorageLayer holds file storage components.
type FileStorageLayer struct {
	FileStorageManager *filestorage.StorageManager
}

// DurableLayer holds the durable execution orchestrator: the checkpointed-step
// runtime, its backing store and queue, the LISTEN/NOTIFY stream transport, the
// "execution" workflow definition, and the control plane built on top of them.
type DurableLayer struct {
	PgxPool         *pgxpool.Pool
	Store           *durable.ExecutionStore
	Queue           *durable.DurableQueue
	Runtime         *durable.WorkflowRuntime
	StreamTransport *durable.StreamTransport
	ExecutionWF     *durable.ExecutionWorkflow
	ControlPlane    *durable.ControlPlane

	cancelWorker context.CancelFunc
}
