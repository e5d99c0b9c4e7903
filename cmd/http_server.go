package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/auth"
	authPostgres "github.com/frahmantamala/resto-order/internal/auth/postgres"
	"github.com/frahmantamala/resto-order/internal/broker"
	"github.com/frahmantamala/resto-order/internal/cache"
	"github.com/frahmantamala/resto-order/internal/catalog"
	catalogPostgres "github.com/frahmantamala/resto-order/internal/catalog/postgres"
	"github.com/frahmantamala/resto-order/internal/core/events"
	"github.com/frahmantamala/resto-order/internal/order"
	orderPostgres "github.com/frahmantamala/resto-order/internal/order/postgres"
	"github.com/frahmantamala/resto-order/internal/payment"
	paymentPostgres "github.com/frahmantamala/resto-order/internal/payment/postgres"
	"github.com/frahmantamala/resto-order/internal/storage"
	"github.com/frahmantamala/resto-order/internal/tenant"
	tenantPostgres "github.com/frahmantamala/resto-order/internal/tenant/postgres"
	"github.com/frahmantamala/resto-order/internal/transport/middleware"
	"github.com/frahmantamala/resto-order/internal/transport/rest"
	"github.com/frahmantamala/resto-order/internal/transport/swagger"
	"github.com/frahmantamala/resto-order/internal/user"
	userPostgres "github.com/frahmantamala/resto-order/internal/user/postgres"
	"github.com/frahmantamala/resto-order/pkg/logger"
)

const (
	openAPIPath  = "./api/openapi.yml"
	relayTimeout = 5 * time.Second
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Gorm      *gorm.DB
	Router    *chi.Mux
	Redis     *cache.Client
	Publisher *broker.Publisher
	EventBus  *events.EventBus
	Logger    *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Server.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		deps.Logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Logger.Error("HTTP server stopped with error", "error", err)
		deps.close()
		os.Exit(1)
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	// the public upload route and the summary cache need these before any handler
	store, err := storage.NewLocalStore(cfg.Storage.ProofDir, cfg.Server.BaseURL+cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to prepare proof storage: %w", err)
	}

	var summaryCache order.SummaryCache = order.NoopSummaryCache()
	var limiter middleware.Limiter
	healthChecks := map[string]rest.Pinger{}
	if deps.Redis != nil {
		summaryCache = cache.NewSummaryCache(deps.Redis, cfg.Redis.SummaryTTL, lg)
		limiter = deps.Redis
		healthChecks["redis"] = deps.Redis
	}

	clientIPs, err := middleware.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	tenantService := tenant.NewService(tenantPostgres.NewTenantRepository(deps.Gorm), lg)
	catalogService := catalog.NewService(catalogPostgres.NewCatalogRepository(deps.Gorm), lg)
	orderService := order.NewService(
		orderPostgres.NewOrderRepository(deps.Gorm),
		catalogService,
		deps.EventBus,
		lg,
		order.WithSummaryCache(summaryCache),
	)
	paymentService := payment.NewService(
		paymentPostgres.NewPaymentRepository(deps.Gorm),
		store,
		deps.EventBus,
		lg,
		payment.WithSummaryCache(summaryCache),
		payment.WithProofMaxBytes(cfg.Payment.ProofMaxBytes),
	)

	tokenGenerator := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokenGenerator, lg)
	userService := user.NewService(userPostgres.NewPostgresRepo(deps.DB), lg)

	verifier := payment.NewSignatureVerifier(cfg.Payment.CallbackPrivateKey, cfg.Payment.MerchantCode)
	if !verifier.Configured() {
		lg.Warn("payment callback private key is not configured; every gateway callback will be rejected")
	}

	if _, err := swagger.Load(context.Background(), openAPIPath); err != nil {
		lg.Warn("openapi document failed to load", "path", openAPIPath, "error", err)
	}

	rest.RegisterAllRoutes(deps.Router, rest.Dependencies{
		DB:                 deps.DB.DB,
		AuthHandler:        auth.NewHandler(authService),
		AuthService:        authService,
		UserHandler:        user.NewHandler(userService),
		OrderHandler:       order.NewHandler(orderService, tenantService),
		PaymentHandler:     payment.NewHandler(paymentService, orderService, tenantService, paymentService.ProofMaxBytes()),
		WebhookHandler:     payment.NewWebhookHandler(paymentService, verifier),
		Limiter:            limiter,
		ClientIPs:          clientIPs,
		CallbackRateLimit:  cfg.Redis.CallbackRateLimit,
		CallbackRateWindow: cfg.Redis.CallbackRateWindow,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		ProofDir:           store.Dir(),
		ProofURLPrefix:     cfg.Storage.PublicBaseURL,
		OpenAPIPath:        openAPIPath,
		HealthChecks:       healthChecks,
		Logger:             lg,
	})
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	initLogger(config)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
	}

	if config.Redis.URL != "" {
		ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Initialize(ctx, config.Redis.URL)
		cancel()
		if err != nil {
			// summaries fall back to the database and callbacks go unthrottled
			lg.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			deps.Redis = client
		}
	}

	if config.RabbitMQ.URL != "" {
		publisher, err := broker.Dial(config.RabbitMQ.URL, config.RabbitMQ.Exchange, lg)
		if err != nil {
			lg.Warn("rabbitmq unavailable, events stay in-process", "error", err)
		} else {
			publisher.Relay(deps.EventBus, relayTimeout)
			deps.Publisher = publisher
		}
	}

	return deps, nil
}

func (d *Dependencies) close() {
	d.EventBus.Wait()
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error("RabbitMQ close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}
