package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/dispatcher"
	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/application/service"
	"github.com/garyjia/expense-batchpay/internal/domain/event"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/auth"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/export"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/external/email"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/external/sms"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/realtime"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/worker"
	"github.com/garyjia/expense-batchpay/migrations"
	"github.com/garyjia/expense-batchpay/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// RealtimeBundle holds the local hub and, when enabled, the Redis bus.
// Publisher is what services publish to.
type RealtimeBundle struct {
	Hub       *realtime.Hub
	Bus       *realtime.RedisBus
	Client    *redis.Client
	Publisher port.EventPublisher
}

// AuthBundle holds token and policy components.
type AuthBundle struct {
	Tokens   *auth.TokenService
	Enforcer *auth.Enforcer
}

// ProvideDatabase opens the SQLite database and applies embedded
// migrations when AutoMigrate is set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Migrations applied", zap.Int("count", applied))
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repository implementations.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Expense: repository.NewExpenseRepository(sqlDB, logger),
		User:    repository.NewUserRepository(sqlDB, logger),
		Site:    repository.NewSiteRepository(sqlDB, logger),
		History: repository.NewHistoryRepository(sqlDB, logger),
		OTP:     repository.NewOTPRepository(sqlDB, logger),
		Ledger:  repository.NewBatchPaymentRepository(sqlDB, logger),
	}, nil
}

// ProvideSenders creates the email sender and, when enabled, the SMS sender.
// A nil SMSSender disables the SMS channel.
func ProvideSenders(smtpCfg *SMTPConfig, smsCfg *SMSConfig, logger *zap.Logger) (port.EmailSender, port.SMSSender, error) {
	if smtpCfg == nil || smsCfg == nil {
		return nil, nil, fmt.Errorf("sender config is required")
	}

	emailSender := email.NewSMTPSender(email.SMTPConfig{
		Host:        smtpCfg.Host,
		Port:        smtpCfg.Port,
		Username:    smtpCfg.Username,
		Password:    smtpCfg.Password,
		FromAddress: smtpCfg.FromAddress,
		FromName:    smtpCfg.FromName,
	}, logger)

	if !smsCfg.Enabled {
		logger.Info("SMS channel disabled")
		return emailSender, nil, nil
	}

	smsSender := sms.NewGatewaySender(sms.GatewayConfig{
		URL:      smsCfg.URL,
		APIKey:   smsCfg.APIKey,
		SenderID: smsCfg.SenderID,
		Timeout:  smsCfg.Timeout,
	}, logger)

	return emailSender, smsSender, nil
}

// ProvideRealtime creates the SSE hub and the Redis bus when enabled.
func ProvideRealtime(ctx context.Context, rtCfg *RealtimeConfig, redisCfg *RedisConfig, logger *zap.Logger) (*RealtimeBundle, error) {
	if rtCfg == nil || redisCfg == nil {
		return nil, fmt.Errorf("realtime config is required")
	}

	hub := realtime.NewHub(realtime.HubConfig{
		MaxConnsPerUser: rtCfg.MaxConnsPerUser,
		BufferSize:      rtCfg.BufferSize,
	}, logger)

	bundle := &RealtimeBundle{Hub: hub, Publisher: hub}
	if !redisCfg.Enabled {
		return bundle, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	bus := realtime.NewRedisBus(client, redisCfg.Channel, logger)
	if err := bus.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	bundle.Bus = bus
	bundle.Client = client
	bundle.Publisher = bus
	return bundle, nil
}

// ProvideAuth creates the token service and policy enforcer.
func ProvideAuth(cfg *AuthConfig, logger *zap.Logger) (*AuthBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}

	enforcer, err := auth.NewEnforcer(
		auth.PaymentPolicies(service.ResourceBatchPayments, service.ActionProcess),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	return &AuthBundle{
		Tokens:   auth.NewTokenService(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL),
		Enforcer: enforcer,
	}, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Email      port.EmailSender
	SMS        port.SMSSender
	Publisher  port.EventPublisher
	Authorizer port.Authorizer
	Dispatcher dispatcher.Dispatcher
	OTP        *OTPConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	var otpCfg service.OTPConfig
	if deps.OTP != nil {
		otpCfg = service.OTPConfig{Validity: deps.OTP.Validity, MaxAttempts: deps.OTP.MaxAttempts}
	}

	otpService := service.NewOTPService(deps.Repos.OTP, otpCfg, serviceLogger)
	notifier := service.NewNotificationService(deps.Email, deps.SMS, serviceLogger)
	broadcaster := service.NewBroadcastService(deps.Publisher, serviceLogger)

	batchPayment := service.NewBatchPaymentService(service.BatchPaymentDeps{
		ExpenseRepo: deps.Repos.Expense,
		HistoryRepo: deps.Repos.History,
		SiteRepo:    deps.Repos.Site,
		LedgerRepo:  deps.Repos.Ledger,
		TxManager:   deps.TxManager,
		OTPService:  otpService,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Authorizer:  deps.Authorizer,
		Exporter:    export.NewLedgerExporter(deps.Logger),
		Dispatcher:  deps.Dispatcher,
	}, serviceLogger)

	return &ServiceBundle{
		OTP:          otpService,
		Notification: notifier,
		Broadcast:    broadcaster,
		BatchPayment: batchPayment,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dispatcherLogger := &dispatcherLoggerAdapter{logger: logger}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(dispatcherLogger),
	), nil
}

// SubscribeHandlers registers the post-settlement fan-out handlers.
func SubscribeHandlers(d dispatcher.Dispatcher, services *ServiceBundle) error {
	if d == nil || services == nil {
		return fmt.Errorf("dispatcher and services are required")
	}

	d.Subscribe(event.TypeBatchSettled, "realtime-broadcast", services.Broadcast.HandleBatchSettled)
	d.Subscribe(event.TypeBatchSettled, "notification-fanout", services.Notification.HandleBatchSettled)
	return nil
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	OTP       service.OTPService
	Realtime  *RealtimeBundle
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager with the OTP sweeper and,
// when Redis is enabled, the relay from Redis into the local hub.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.OTP == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	manager.Register(worker.NewOTPSweeper(
		worker.OTPSweeperConfig{Interval: deps.WorkerCfg.OTPSweepInterval},
		deps.OTP,
		deps.Logger,
	))

	if rt := deps.Realtime; rt != nil && rt.Bus != nil {
		bus, hub := rt.Bus, rt.Hub
		manager.Register(worker.NewRealtimeRelayWorker(
			worker.RelayFunc(func(ctx context.Context) error { return bus.Relay(ctx, hub) }),
			deps.WorkerCfg.RelayBackoff,
			deps.Logger,
		))
	}

	return manager, nil
}
