package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/krwhynot/pantry-crm/internal/interaction"
	interactionPostgres "github.com/krwhynot/pantry-crm/internal/interaction/postgres"
	"github.com/krwhynot/pantry-crm/internal/session"
	sessionPostgres "github.com/krwhynot/pantry-crm/internal/session/postgres"
	"github.com/krwhynot/pantry-crm/internal/tasks"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the asynq worker that delivers follow-up reminders and sweeps expired sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

var (
	workerConcurrency int
	sweepInterval     time.Duration
)

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 10, "Number of concurrent task workers")
	workerCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Hour, "How often expired sessions are swept")
}

func startWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	sessionService := session.NewService(sessionPostgres.NewSessionRepository(db), session.Config{
		TTL:             config.Security.RefreshTokenDuration,
		MaxPerUser:      config.Session.MaxPerUser,
		RotateOnRefresh: config.Session.RotateOnRefresh,
		EnforceIPMatch:  config.Session.EnforceIPMatch,
	}, lg)

	// The worker only checks follow-up state, so the enrichment and
	// scheduling collaborators stay unset.
	interactionService := interaction.NewService(
		interactionPostgres.NewInteractionRepository(db),
		nil, nil, nil, nil, nil,
		lg,
	)

	redisOpt := asynq.RedisClientOpt{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: workerConcurrency,
		Queues: map[string]int{
			"reminders":   6,
			"maintenance": 3,
			"default":     1,
		},
	})

	mux := asynq.NewServeMux()
	tasks.NewHandlers(sessionService, interactionService, lg).Register(mux)

	tasksClient := tasks.NewClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB, lg)
	defer tasksClient.Close()

	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := tasksClient.EnqueueSessionSweep(time.Now()); err != nil {
					lg.Error("failed to enqueue session sweep", "error", err)
				}
			case <-stopSweep:
				return
			}
		}
	}()

	lg.Info("worker started",
		"concurrency", workerConcurrency,
		"sweep_interval", sweepInterval)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(mux)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down worker", "signal", sig)
	case err := <-serverErrChan:
		if err != nil {
			lg.Error("worker failed", "error", err)
		}
	}

	close(stopSweep)
	srv.Shutdown()
	lg.Info("worker shutdown complete")
}
