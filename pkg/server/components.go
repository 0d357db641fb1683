package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flowforge/orchestrator/internal/application/auth"
	"github.com/flowforge/orchestrator/internal/application/engine"
	"github.com/flowforge/orchestrator/internal/application/filestorage"
	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/internal/application/rentalkey"
	"github.com/flowforge/orchestrator/internal/application/servicekey"
	"github.com/flowforge/orchestrator/internal/application/systemkey"
	"github.com/flowforge/orchestrator/internal/application/trigger"
	"github.com/flowforge/orchestrator/internal/durable"
	"github.com/flowforge/orchestrator/internal/infrastructure/api/rest"
	"github.com/flowforge/orchestrator/internal/infrastructure/cache"
	"github.com/flowforge/orchestrator/internal/infrastructure/storage"
	"github.com/flowforge/orchestrator/pkg/crypto"
	"github.com/flowforge/orchestrator/pkg/executor"
	"github.com/flowforge/orchestrator/pkg/executor/builtin"
)

func (s *Server) initComponents() error {
	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := s.initRedisCache(); err != nil {
		s.logger.Warn("Failed to initialize Redis cache", "error", err)
	}

	if err := s.initExecutorManager(); err != nil {
		return fmt.Errorf("failed to initialize executor manager: %w", err)
	}

	if err := s.initFileStorageManager(); err != nil {
		return fmt.Errorf("failed to initialize file storage manager: %w", err)
	}

	// Initialize repositories before observer manager (observer uses eventRepo)
	if err := s.initRepositories(); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := s.initObserverManager(); err != nil {
		return fmt.Errorf("failed to initialize observer manager: %w", err)
	}

	if err := s.initEncryptionServices(); err != nil {
		s.logger.Warn("Encryption service not available - credentials and rental keys features disabled", "error", err)
	}

	if err := s.initAuthSystem(); err != nil {
		return fmt.Errorf("failed to initialize auth system: %w", err)
	}

	if err := s.initSystemKeySystem(); err != nil {
		return fmt.Errorf("failed to initialize system key system: %w", err)
	}

	if err := s.initExecutionEngine(); err != nil {
		return fmt.Errorf("failed to initialize execution engine: %w", err)
	}

	if err := s.initTriggerManager(); err != nil {
		s.logger.Warn("Failed to initialize trigger manager", "error", err)
	}

	if err := s.initDurableLayer(); err != nil {
		s.logger.Warn("Durable execution orchestrator disabled", "error", err)
	}

	return nil
}

func (s *Server) initDatabase() error {
	dbConfig := &storage.Config{
		DSN:             s.config.Database.URL,
		MaxOpenConns:    s.config.Database.MaxConnections,
		MaxIdleConns:    s.config.Database.MinConnections,
		ConnMaxLifetime: s.config.Database.MaxConnLifetime,
		ConnMaxIdleTime: s.config.Database.MaxIdleTime,
		Debug:           s.config.Logging.Level == "debug",
	}

	db, err := storage.NewDB(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.data.DB = db
	s.logger.Info("Database connected",
		"max_conns", s.config.Database.MaxConnections,
	)

	return nil
}

func (s *Server) initRedisCache() error {
	redisCache, err := cache.NewRedisCache(s.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to create redis cache: %w", err)
	}

	s.data.RedisCache = redisCache
	s.logger.Info("Redis cache connected")
	return nil
}

func (s *Server) initExecutorManager() error {
	s.execution.ExecutorManager = executor.NewManager()

	if err := builtin.RegisterBuiltins(s.execution.ExecutorManager); err != nil {
		return fmt.Errorf("failed to register built-in executors: %w", err)
	}

	s.logger.Info("Registered executors", "types", s.execution.ExecutorManager.List())
	return nil
}

func (s *Server) initFileStorageManager() error {
	fileStorageConfig := filestorage.DefaultManagerConfig()
	fileStorageConfig.BasePath = s.config.FileStorage.StoragePath
	fileStorageConfig.MaxFileSize = s.config.FileStorage.MaxFileSize

	s.fileStorage.FileStorageManager = filestorage.NewStorageManager(fileStorageConfig)

	s.logger.Info("File storage manager initialized",
		"base_path", s.config.FileStorage.StoragePath,
		"max_file_size", s.config.FileStorage.MaxFileSize,
	)

	if err := builtin.RegisterFileStorage(s.execution.ExecutorManager, s.fileStorage.FileStorageManager); err != nil {
		return fmt.Errorf("failed to register file_storage executor: %w", err)
	}

	if err := builtin.RegisterAdapters(s.execution.ExecutorManager); err != nil {
		return fmt.Errorf("failed to register adapter executors: %w", err)
	}

	if err := builtin.RegisterFileAdapters(s.execution.ExecutorManager, s.fileStorage.FileStorageManager); err != nil {
		return fmt.Errorf("failed to register file adapter executors: %w", err)
	}

	return nil
}

func (s *Server) initObserverManager() error {
	if s.config.Observer.EnableWebSocket {
		s.execution.WSHub = observer.NewWebSocketHub(s.logger)
		s.logger.Info("WebSocket hub initialized")
	}

	s.execution.ObserverManager = observer.NewObserverManager(
		observer.WithLogger(s.logger),
		observer.WithBufferSize(s.config.Observer.BufferSize),
	)

	if s.config.Observer.EnableDatabase {
		dbObserver := observer.NewDatabaseObserver(s.data.EventRepo)
		if err := s.execution.ObserverManager.Register(dbObserver); err != nil {
			s.logger.Error("Failed to register database observer", "error", err)
		} else {
			s.logger.Info("Database observer registered")
		}
	}

	if s.config.Observer.EnableHTTP && s.config.Observer.HTTPCallbackURL != "" {
		httpObserver := observer.NewHTTPCallbackObserver(
			s.config.Observer.HTTPCallbackURL,
			observer.WithHTTPMethod(s.config.Observer.HTTPMethod),
			observer.WithHTTPHeaders(s.config.Observer.HTTPHeaders),
			observer.WithHTTPTimeout(s.config.Observer.HTTPTimeout),
			observer.WithHTTPRetry(
				s.config.Observer.HTTPMaxRetries,
				s.config.Observer.HTTPRetryDelay,
				2.0,
			),
		)
		if err := s.execution.ObserverManager.Register(httpObserver); err != nil {
			s.logger.Error("Failed to register HTTP observer", "error", err)
		} else {
			s.logger.Info("HTTP callback observer registered",
				"url", s.config.Observer.HTTPCallbackURL,
				"method", s.config.Observer.HTTPMethod,
			)
		}
	}

	if s.config.Observer.EnableLogger {
		loggerObserver := observer.NewLoggerObserver(
			observer.WithLoggerInstance(s.logger),
		)
		if err := s.execution.ObserverManager.Register(loggerObserver); err != nil {
			s.logger.Error("Failed to register logger observer", "error", err)
		} else {
			s.logger.Info("Logger observer registered")
		}
	}

	if s.config.Observer.EnableWebSocket && s.execution.WSHub != nil {
		wsObserver := observer.NewWebSocketObserver(
			s.execution.WSHub,
			observer.WithWebSocketLogger(s.logger),
		)
		if err := s.execution.ObserverManager.Register(wsObserver); err != nil {
			s.logger.Error("Failed to register WebSocket observer", "error", err)
		} else {
			s.logger.Info("WebSocket observer registered")
		}
	}

	s.logger.Info("Observer system initialized",
		"observer_count", s.execution.ObserverManager.Count(),
	)

	return nil
}

func (s *Server) initRepositories() error {
	s.data.WorkflowRepo = storage.NewWorkflowRepository(s.data.DB)
	s.data.ExecutionRepo = storage.NewExecutionRepository(s.data.DB)
	s.data.EventRepo = storage.NewEventRepository(s.data.DB)
	s.data.TriggerRepo = storage.NewTriggerRepository(s.data.DB)
	s.data.UserRepo = storage.NewUserRepository(s.data.DB)
	s.data.FileRepo = storage.NewFileRepository(s.data.DB)
	s.data.AccountRepo = storage.NewAccountRepository(s.data.DB)
	s.data.TransactionRepo = storage.NewTransactionRepository(s.data.DB)
	s.data.ResourceRepo = storage.NewResourceRepository(s.data.DB)
	s.data.PricingPlanRepo = storage.NewPricingPlanRepository(s.data.DB)
	s.data.CredentialsRepo = storage.NewCredentialsRepository(s.data.DB)
	s.data.ServiceKeyRepo = storage.NewServiceKeyRepository(s.data.DB)
	s.data.SystemKeyRepo = storage.NewSystemKeyRepo(s.data.DB)
	s.data.AuditLogRepo = storage.NewServiceAuditLogRepo(s.data.DB)

	s.logger.Info("Repositories initialized")
	return nil
}

func (s *Server) initEncryptionServices() error {
	encryptionService, err := crypto.GetDefaultService()
	if err != nil {
		return fmt.Errorf("encryption service not available: %w", err)
	}

	s.auth.EncryptionService = encryptionService
	s.logger.Info("Encryption service initialized")

	s.data.RentalKeyRepo = storage.NewRentalKeyRepository(s.data.DB, encryptionService)
	s.auth.RentalKeyProvider = rentalkey.NewProvider(s.data.RentalKeyRepo, encryptionService)

	s.logger.Info("Rental key provider initialized")
	return nil
}

func (s *Server) initAuthSystem() error {
	s.auth.AuthService = auth.NewService(s.data.UserRepo, s.data.AccountRepo, &s.config.Auth)

	providerManager, err := auth.NewProviderManager(&s.config.Auth, s.auth.AuthService)
	if err != nil {
		s.logger.Warn("Failed to initialize auth provider manager", "error", err)
	}
	s.auth.ProviderManager = providerManager

	s.auth.ServiceKeyService = servicekey.NewService(s.data.ServiceKeyRepo, servicekey.Config{
		MaxKeysPerUser:    s.config.ServiceKeys.MaxKeysPerUser,
		DefaultExpiryDays: s.config.ServiceKeys.DefaultExpiryDays,
	})

	s.auth.AuthMiddleware = rest.NewAuthMiddleware(s.auth.ProviderManager, s.auth.AuthService, s.auth.ServiceKeyService)
	s.auth.LoginRateLimiter = rest.NewLoginRateLimiter(
		s.config.Auth.MaxLoginAttempts,
		time.Duration(s.config.Auth.MaxLoginAttempts)*time.Minute,
		s.config.Auth.LockoutDuration,
	)

	s.logger.Info("Auth system initialized",
		"mode", s.config.Auth.Mode,
		"registration_enabled", s.config.Auth.AllowRegistration,
	)

	s.logger.Info("Service key service initialized",
		"max_keys_per_user", s.config.ServiceKeys.MaxKeysPerUser,
		"default_expiry_days", s.config.ServiceKeys.DefaultExpiryDays,
	)

	return nil
}

func (s *Server) initExecutionEngine() error {
	s.execution.ExecutionManager = engine.NewExecutionManager(
		s.execution.ExecutorManager,
		s.data.WorkflowRepo,
		s.data.ExecutionRepo,
		s.data.EventRepo,
		s.execution.ObserverManager,
	)

	s.logger.Info("Execution engine initialized")
	return nil
}

func (s *Server) initTriggerManager() error {
	if s.data.RedisCache == nil {
		return fmt.Errorf("trigger manager disabled - Redis cache not available")
	}

	triggerManager, err := trigger.NewManager(trigger.ManagerConfig{
		TriggerRepo:  s.data.TriggerRepo,
		WorkflowRepo: s.data.WorkflowRepo,
		ExecutionMgr: s.execution.ExecutionManager,
		Cache:        s.data.RedisCache,
	})
	if err != nil {
		return fmt.Errorf("failed to create trigger manager: %w", err)
	}

	s.triggers.TriggerManager = triggerManager
	s.logger.Info("Trigger manager initialized")

	if err := s.triggers.TriggerManager.Start(); err != nil {
		return fmt.Errorf("failed to start trigger manager: %w", err)
	}

	s.logger.Info("Trigger manager started")
	return nil
}

func (s *Server) initSystemKeySystem() error {
	s.serviceAPI.SystemKeyService = systemkey.NewService(s.data.SystemKeyRepo, systemkey.Config{
		MaxKeys:           s.config.ServiceAPI.MaxKeys,
		DefaultExpiryDays: s.config.ServiceAPI.DefaultExpiryDays,
		BcryptCost:        s.config.ServiceAPI.BcryptCost,
	})
	s.serviceAPI.AuditService = systemkey.NewAuditService(s.data.AuditLogRepo, s.config.ServiceAPI.AuditRetentionDays)
	s.serviceAPI.SystemAuthMiddleware = rest.NewSystemAuthMiddleware(s.serviceAPI.SystemKeyService, s.data.UserRepo, s.config.ServiceAPI.SystemUserID, s.logger)
	s.serviceAPI.AuditMiddleware = rest.NewAuditMiddleware(s.serviceAPI.AuditService, s.logger)
	s.logger.Info("System key system initialized")
	return nil
}

// initDurableLayer wires the durable orchestrator: the checkpointed-step runtime and its
// backing store/queue, the LISTEN/NOTIFY stream transport, the "execution" durable
// workflow, and the control plane facade that fronts all of it. It needs its own pgx
// connection pool alongside the bun *sql.DB - bun's database/sql pool cannot surface raw
// LISTEN/NOTIFY frames, the same gap EventRepository.Stream works around with polling.
func (s *Server) initDurableLayer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, s.config.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for durable stream transport: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping pgx pool for durable stream transport: %w", err)
	}

	workerID, err := os.Hostname()
	if err != nil || workerID == "" {
		workerID = fmt.Sprintf("worker-%d", os.Getpid())
	}

	var redisClient *redis.Client
	if s.data.RedisCache != nil {
		redisClient = s.data.RedisCache.Client()
	}

	s.durable.PgxPool = pool
	s.durable.Store = durable.NewExecutionStore(s.data.DB, s.logger)
	s.durable.Queue = durable.NewDurableQueue(s.data.DB, redisClient, s.config.Durable, s.logger)
	s.durable.Runtime = durable.NewWorkflowRuntime(s.data.DB, s.durable.Queue, s.durable.Store, s.config.Durable, s.logger, workerID)
	s.durable.StreamTransport = durable.NewStreamTransport(s.data.DB, pool, durable.StreamTransportConfig{}, s.logger)

	nodeExecutor := engine.NewNodeExecutor(s.execution.ExecutorManager)
	dagExecutor := engine.NewDAGExecutor(nodeExecutor, s.execution.ObserverManager)

	s.durable.ExecutionWF = durable.NewExecutionWorkflow(
		s.durable.Runtime,
		s.durable.Store,
		s.data.WorkflowRepo,
		dagExecutor,
		s.durable.StreamTransport,
		s.config.Engine,
		s.logger,
	)
	s.durable.ControlPlane = durable.NewControlPlane(s.durable.Runtime, s.durable.Store, s.durable.StreamTransport, s.durable.ExecutionWF)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	s.durable.cancelWorker = cancelWorker

	s.durable.Runtime.StartQueueWorker(workerCtx, "executions", s.config.Durable.WorkerConcurrency, 500*time.Millisecond)
	if err := s.durable.Runtime.StartRecoverySweeper(workerCtx); err != nil {
		s.logger.Warn("Durable recovery sweeper not started", "error", err)
	}

	s.logger.Info("Durable execution orchestrator initialized",
		"worker_id", workerID,
		"worker_concurrency", s.config.Durable.WorkerConcurrency,
	)
	return nil
}
