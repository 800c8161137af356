package cmd

import (
	"context"
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
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/auth"
	authPostgres "github.com/krwhynot/pantry-crm/internal/auth/postgres"
	"github.com/krwhynot/pantry-crm/internal/contact"
	contactPostgres "github.com/krwhynot/pantry-crm/internal/contact/postgres"
	"github.com/krwhynot/pantry-crm/internal/core/events"
	"github.com/krwhynot/pantry-crm/internal/interaction"
	interactionPostgres "github.com/krwhynot/pantry-crm/internal/interaction/postgres"
	"github.com/krwhynot/pantry-crm/internal/opportunity"
	opportunityPostgres "github.com/krwhynot/pantry-crm/internal/opportunity/postgres"
	"github.com/krwhynot/pantry-crm/internal/organization"
	orgPostgres "github.com/krwhynot/pantry-crm/internal/organization/postgres"
	"github.com/krwhynot/pantry-crm/internal/product"
	productPostgres "github.com/krwhynot/pantry-crm/internal/product/postgres"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	rbacPostgres "github.com/krwhynot/pantry-crm/internal/rbac/postgres"
	"github.com/krwhynot/pantry-crm/internal/reporting"
	reportingPostgres "github.com/krwhynot/pantry-crm/internal/reporting/postgres"
	"github.com/krwhynot/pantry-crm/internal/session"
	sessionPostgres "github.com/krwhynot/pantry-crm/internal/session/postgres"
	"github.com/krwhynot/pantry-crm/internal/tasks"
	"github.com/krwhynot/pantry-crm/internal/transport/rest"
	"github.com/krwhynot/pantry-crm/internal/user"
	userPostgres "github.com/krwhynot/pantry-crm/internal/user/postgres"
	"github.com/krwhynot/pantry-crm/pkg/logger"
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
	Config      *internal.Config
	DB          *gorm.DB
	SQLX        *sqlx.DB
	Redis       *redis.Client
	TasksClient *tasks.Client
	Router      *chi.Mux
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.TasksClient.Close(); err != nil {
			deps.Logger.Error("tasks client close error", "error", err)
		}
		if err := deps.Redis.Close(); err != nil {
			deps.Logger.Error("redis close error", "error", err)
		}
		if sqlDB, err := deps.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				deps.Logger.Error("database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger
	db := deps.DB

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.EventTypeOpportunityWon, func(ctx context.Context, event events.Event) error {
		lg.Info("opportunity won", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})

	rbacService := rbac.NewService(rbacPostgres.NewRBACRepository(db), lg)

	sessionRepo := session.NewCachedRepository(
		sessionPostgres.NewSessionRepository(db),
		deps.Redis,
		cfg.Session.CacheTTL,
		lg,
	)
	sessionService := session.NewService(sessionRepo, session.Config{
		TTL:             cfg.Security.RefreshTokenDuration,
		MaxPerUser:      cfg.Session.MaxPerUser,
		RotateOnRefresh: cfg.Session.RotateOnRefresh,
		EnforceIPMatch:  cfg.Session.EnforceIPMatch,
	}, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(
		authPostgres.NewRepository(db),
		tokenGen,
		session.NewManager(sessionService),
		rbacService,
		cfg.Security.BCryptCost,
		lg,
	)

	userService := user.NewService(
		userPostgres.NewUserRepository(db),
		rbacService,
		sessionService,
		cfg.Security.BCryptCost,
		lg,
	)

	orgService := organization.NewService(orgPostgres.NewOrganizationRepository(db), lg)
	contactService := contact.NewService(contactPostgres.NewContactRepository(db), orgService, lg)
	opportunityService := opportunity.NewService(
		opportunityPostgres.NewOpportunityRepository(db),
		orgService,
		contactService,
		bus,
		lg,
	)
	interactionService := interaction.NewService(
		interactionPostgres.NewInteractionRepository(db),
		orgService,
		contactService,
		opportunityService,
		deps.TasksClient,
		bus,
		lg,
	)
	productService := product.NewService(productPostgres.NewProductRepository(db), lg)
	reportingService := reporting.NewService(reportingPostgres.NewReportingRepository(deps.SQLX), lg)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(authService),
		User:         user.NewHandler(userService),
		Session:      session.NewHandler(sessionService),
		RBAC:         rbac.NewHandler(rbacService),
		Organization: organization.NewHandler(orgService),
		Contact:      contact.NewHandler(contactService),
		Interaction:  interaction.NewHandler(interactionService),
		Opportunity:  opportunity.NewHandler(opportunityService),
		Product:      product.NewHandler(productService),
		Reporting:    reporting.NewHandler(reportingService),
	}

	sqlDB, err := deps.DB.DB()
	if err != nil {
		lg.Error("failed to unwrap sql.DB for health checks", "error", err)
	}
	rest.RegisterAllRoutes(deps.Router, sqlDB, deps.Redis, handlers, lg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap sql.DB: %w", err)
	}
	sqlxDB := sqlx.NewDb(sqlDB, "pgx")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	tasksClient := tasks.NewClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB, lg)

	return &Dependencies{
		Config:      config,
		Logger:      lg,
		DB:          db,
		SQLX:        sqlxDB,
		Redis:       redisClient,
		TasksClient: tasksClient,
		Router:      chi.NewRouter(),
	}, nil
}

// initDB opens the GORM connection used by the domain repositories and
// applies the pool settings to the underlying sql.DB.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(gormPostgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
