// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	router "wallet-ledger/internal/api"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/cache"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Nats   *nats.Conn

	// Repositories
	WalletRepository repository.WalletRepository

	// Services
	Coordinator   *service.TransactionCoordinator
	WalletService service.WalletService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(ctx, app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.DBAutoMigrate {
		if err := repository.RunMigrations(ctx, app.DB.DB, "up"); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		app.Logger.Info("Database schema migrated.")
	}

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository()
	app.Logger.Info("Repositories initialized.")

	// 5. Optional cache and event bus
	walletCache, err := app.initCache(ctx)
	if err != nil {
		return err
	}
	publisher, err := app.initPublisher()
	if err != nil {
		return err
	}

	// 6. Initialize Services
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.Coordinator = service.NewTransactionCoordinator(
		app.DB, // This is the DBTxBeginner
		app.WalletRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Config.OperationTimeout,
		app.Logger,
	)
	app.WalletService = service.NewWalletService(
		app.DB, // This is the DBExecutor
		app.WalletRepository,
		app.Coordinator,
		walletCache,
		publisher,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	app.HTTPHandler = router.NewRouter(walletHandler, app.Config.RequestTimeout, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

func (app *Application) initCache(ctx context.Context) (cache.WalletCache, error) {
	if app.Config.Redis.Addr == "" {
		app.Logger.Info("Wallet cache disabled (REDIS_ADDR not set).")
		return cache.NoopWalletCache{}, nil
	}
	client, err := cache.NewRedisClient(ctx, app.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.Redis = client
	app.Logger.Info("Wallet cache connected.", "addr", app.Config.Redis.Addr, "ttl", app.Config.CacheTTL)
	return cache.NewRedisWalletCache(client, app.Config.CacheTTL), nil
}

func (app *Application) initPublisher() (*events.Publisher, error) {
	if app.Config.NatsURL == "" {
		app.Logger.Info("Operation events disabled (NATS_URL not set).")
		return events.NewPublisher(events.NoopBus{}, app.Config.NatsSubject), nil
	}
	nc, err := events.ConnectNats(app.Config.NatsURL)
	if err != nil {
		return nil, err
	}
	app.Nats = nc
	app.Logger.Info("Event bus connected.", "url", app.Config.NatsURL)
	return events.NewPublisher(events.NewNatsBus(nc), app.Config.NatsSubject), nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Nats != nil {
		// Drain flushes pending publishes before closing.
		if err := app.Nats.Drain(); err != nil {
			app.Logger.Warn("Failed to drain NATS connection", "error", err)
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
