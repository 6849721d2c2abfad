package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/richardsimms/SpeasyTTS/internal/bus"
	"github.com/richardsimms/SpeasyTTS/internal/database"
	"github.com/richardsimms/SpeasyTTS/internal/notify"
	"github.com/richardsimms/SpeasyTTS/internal/repository"
	"github.com/richardsimms/SpeasyTTS/internal/scheduler"
	"github.com/richardsimms/SpeasyTTS/internal/services"
	"github.com/richardsimms/SpeasyTTS/internal/storage"
	"github.com/richardsimms/SpeasyTTS/internal/telemetry"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
	"github.com/richardsimms/SpeasyTTS/pkg/version"
)

const (
	shutdownTimeout = 2 * time.Minute
	staleAfter      = 6 * time.Hour
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background conversion service",
	Long: `Run the long-lived conversion service.

Requests arrive on the configured NATS subject; each one gets a status
record that "speasy status" can read. Finished episodes go to the artifact
store and a completion event is published. Metrics are served on the
telemetry address. SIGINT or SIGTERM drains running conversions before exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func runWorker(parent context.Context) error {
	cfg := appConfig
	logger.Info("Starting %s", version.String())

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Meter provider goes first so the pipeline registers its instruments on it.
	tel, err := telemetry.Setup(cfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shut down telemetry: %v", err)
		}
	}()
	if cfg.Telemetry.MetricsAddress != "" {
		go func() {
			if err := tel.Serve(ctx, cfg.Telemetry.MetricsAddress); err != nil {
				logger.Error("Metrics server stopped: %v", err)
			}
		}()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection: %v", err)
		}
	}()
	repo := repository.NewConversionRepository(db)

	store, err := storage.New(ctx, cfg.Storage, cfg.Audio.OutputPath)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	notifiers := notify.Multi{notify.LogNotifier{}}
	var (
		embedded *bus.EmbeddedServer
		client   *bus.Client
	)
	if cfg.Bus.Enabled {
		busCfg := cfg.Bus
		if busCfg.Embedded {
			embedded, err = bus.StartEmbedded("127.0.0.1", busCfg.EmbeddedPort)
			if err != nil {
				return err
			}
			defer embedded.Shutdown()
			busCfg.URL = embedded.URL()
		}
		client, err = bus.Connect(busCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		notifiers = append(notifiers, notify.NewNATSNotifier(client.Conn(), busCfg.EventSubjectBase))
	}

	exec := scheduler.NewExecutor(cfg.Worker.Concurrency, cfg.Worker.QueueSize)
	exec.Start()

	svc := services.NewConversionService(services.ConversionDeps{
		Repo:         repo,
		Runner:       p,
		Store:        store,
		Notifier:     notifiers,
		Executor:     exec,
		Requirements: cfg.Requirements,
		KeyPrefix:    cfg.Storage.Prefix,
	})

	// Recover records of an earlier process before new work can arrive.
	stale := scheduler.NewStaleConversionService(repo, staleAfter)
	stale.Start()

	var intake *bus.Intake
	if client != nil {
		intake = bus.NewIntake(client.Conn(), cfg.Bus.RequestSubject, svc)
		if err := intake.Start(); err != nil {
			return err
		}
	}

	sweeper := scheduler.NewScratchCleanupService(cfg.Audio.TempPath, cfg.Worker.ScratchMaxAge, cfg.Worker.SweepInterval)
	sweeper.Start()

	logger.Info("Worker ready (concurrency %d, queue %d)", cfg.Worker.Concurrency, cfg.Worker.QueueSize)
	<-ctx.Done()
	logger.Info("Shutting down worker")

	// Stop intake before draining so no new work lands on a closing queue.
	if intake != nil {
		intake.Close()
	}
	stale.Stop()
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := exec.Stop(shutdownCtx); err != nil {
		logger.Warn("Conversions still running at shutdown: %v", err)
	}

	logger.Info("Worker stopped")
	return nil
}
