package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/dispatcher"
	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/application/service"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/auth"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/realtime"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	emailSender port.EmailSender
	smsSender   port.SMSSender
	realtime    *RealtimeBundle
	auth        *AuthBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Expense port.ExpenseRepository
	User    port.UserRepository
	Site    port.SiteRepository
	History port.HistoryRepository
	OTP     port.OTPRepository
	Ledger  port.BatchPaymentRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	OTP          service.OTPService
	Notification service.NotificationService
	Broadcast    service.BroadcastService
	BatchPayment service.BatchPaymentService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (SMTP, SMS, Redis) and the realtime hub
// 3. Auth
// 4. Event dispatcher
// 5. Application services and event subscriptions
// 6. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize external clients
	if err := c.initExternalClients(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.Bool("sms", c.smsSender != nil), zap.Bool("redis", c.realtime.Bus != nil))

	// Step 3: Initialize auth
	authBundle, err := ProvideAuth(&c.config.Auth, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	c.auth = authBundle
	c.logger.Info("Auth initialized")

	// Step 4: Initialize dispatcher
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp
	c.logger.Info("Dispatcher initialized")

	// Step 5: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 6: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Stop workers (reverse of step 6)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Drain dispatcher so in-flight notifications finish (reverse of step 4)
	if c.dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), c.drainTimeout())
		err := c.dispatcher.Close(drainCtx)
		cancel()
		if err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Cancel context to signal remaining goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 3: Close realtime connections and Redis (reverse of step 2)
	if c.realtime != nil {
		c.realtime.Hub.Shutdown()
		if c.realtime.Client != nil {
			if err := c.realtime.Client.Close(); err != nil {
				c.logger.Error("Failed to close redis", zap.Error(err))
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		c.logger.Info("Realtime closed")
	}

	// Step 4: Close database (reverse of step 1)
	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) drainTimeout() time.Duration {
	if c.config.Worker.DispatcherDrain > 0 {
		return c.config.Worker.DispatcherDrain
	}
	return 10 * time.Second
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	// Check database
	if c.sqlDB != nil {
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	} else {
		set("database", false, "not initialized")
	}

	// Check realtime
	if c.realtime != nil {
		set("realtime", true, fmt.Sprintf("connections: %d", c.realtime.Hub.ConnCount()))
		if c.realtime.Bus != nil {
			if err := c.realtime.Bus.Ping(ctx); err != nil {
				set("redis", false, fmt.Sprintf("ping failed: %v", err))
			} else {
				set("redis", true, "")
			}
		}
	} else {
		set("realtime", false, "not initialized")
	}

	// Check workers
	if c.workers != nil {
		ws := c.workers.Status()
		set("workers", ws.Healthy(), ws.String())
	} else {
		set("workers", false, "not initialized")
	}

	// Check dispatcher
	if c.dispatcher != nil {
		set("dispatcher", true, fmt.Sprintf("pending: %d", c.dispatcher.Pending()))
	} else {
		set("dispatcher", false, "not initialized")
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.sqlDB.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes senders and the realtime layer.
func (c *Container) initExternalClients() error {
	emailSender, smsSender, err := ProvideSenders(&c.config.SMTP, &c.config.SMS, c.logger)
	if err != nil {
		return err
	}
	c.emailSender = emailSender
	c.smsSender = smsSender

	rt, err := ProvideRealtime(c.ctx, &c.config.Realtime, &c.config.Redis, c.logger)
	if err != nil {
		return err
	}
	c.realtime = rt
	return nil
}

// initServices initializes all application services and subscribes
// the settlement fan-out handlers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Email:      c.emailSender,
		SMS:        c.smsSender,
		Publisher:  c.realtime.Publisher,
		Authorizer: c.auth.Enforcer,
		Dispatcher: c.dispatcher,
		OTP:        &c.config.OTP,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	return SubscribeHandlers(c.dispatcher, c.services)
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		OTP:       c.services.OTP,
		Realtime:  c.realtime,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Hub returns the local SSE hub.
func (c *Container) Hub() *realtime.Hub {
	return c.realtime.Hub
}

// Tokens returns the bearer token service.
func (c *Container) Tokens() *auth.TokenService {
	return c.auth.Tokens
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
