// Package main is the standalone worker of the Pepegotchi bot.
//
// The worker runs the daily reset and the wake sweep outside the bot
// process, for deployments that start the bot with SCHEDULER_ENABLED=false.
// It needs a shared store and LOCK_DRIVER=redis when a bot is running.
//
// Usage:
//
//	worker              run the scheduler until interrupted
//	worker -once reset  reset today's counters and exit
//	worker -once sweep  wake overdue sleepers and exit
//	worker -migrate up|down|status
//	                    apply, roll back or list postgres migrations
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pepegotchi/pepegotchi-bot/config"
	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/application/eventhandler"
	tgapi "github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/messaging"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/metrics"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/scheduler"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/scheduler/jobs"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
	"github.com/pepegotchi/pepegotchi-bot/pkg/circuitbreaker"
	"github.com/pepegotchi/pepegotchi-bot/pkg/logger"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

const (
	jobReset = "reset"
	jobSweep = "sweep"
)

func main() {
	once := flag.String("once", "", "run one job (reset|sweep) and exit")
	migration := flag.String("migrate", "", "run a postgres migration action (up|down|status) and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *once, *migration); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once, migration string) error {
	if once != "" && once != jobReset && once != jobSweep {
		return fmt.Errorf("unknown job %q, want %s or %s", once, jobReset, jobSweep)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Setup(logger.Options{
		Output: os.Stdout,
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
		Attrs:  []slog.Attr{slog.String("service", cfg.App.Name+"-worker")},
	})

	if migration != "" {
		return migrate(ctx, cfg, migration, os.Stdout)
	}

	if cfg.Store.Driver == config.StoreFile || cfg.Store.LockDriver == config.LockLocal {
		log.Warn("worker uses a process-local store or lock; do not run it next to a bot",
			"store", cfg.Store.Driver, "lock", cfg.Store.LockDriver)
	}

	backend, err := persistence.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("storage close failed", logger.Err(err))
		}
	}()

	mx := metrics.NewManager()

	bus := messaging.NewInMemoryEventBus(messaging.Config{Logger: log, Metrics: mx})
	defer func() {
		_ = bus.Close()
	}()

	eng, err := engine.New(engine.Config{
		Repo:      backend.Repo,
		Locker:    backend.Locker,
		Publisher: bus,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// Pets woken here still get their wake notice.
	clientConfig := tgapi.DefaultClientConfig(cfg.Telegram.BotToken())
	clientConfig.Breaker = circuitbreaker.TelegramAPIBreaker(nil, tgapi.IsServiceFailure)
	clientConfig.Metrics = mx
	clientConfig.Logger = log
	notifier := telegram.NewNotifier(tgapi.NewClient(clientConfig), presenter.NewImages(cfg.Store.ImagesPath), log)
	if err := eventhandler.Register(bus, eventhandler.Deps{Wake: notifier, Metrics: mx, Logger: log}); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	switch once {
	case jobReset:
		report, err := eng.ResetDailyCounters(ctx)
		if err != nil {
			return fmt.Errorf("daily reset failed: %w", err)
		}
		log.Info("daily reset done", "day", report.Day, "users", report.Users, "reset", report.Reset, "failed", report.Failed)
		return nil
	case jobSweep:
		n, err := eng.SweepDue(ctx)
		if err != nil {
			return fmt.Errorf("wake sweep failed: %w", err)
		}
		log.Info("wake sweep done", "woken", n)
		return nil
	}

	schedConfig := scheduler.DefaultConfig()
	schedConfig.Logger = log
	schedConfig.Metrics = mx
	sched := scheduler.NewScheduler(schedConfig)

	resetSchedule, err := scheduler.ParseCron(cfg.Scheduler.ResetCron, timeutil.TegucigalpaTZ)
	if err != nil {
		return fmt.Errorf("invalid reset schedule: %w", err)
	}
	resetConfig := jobs.DefaultDailyResetConfig()
	resetConfig.Timeout = cfg.Scheduler.JobTimeout
	if err := sched.Register(jobs.NewDailyResetJob(eng, log, resetConfig, nil), resetSchedule); err != nil {
		return err
	}
	sweep := jobs.NewWakeSweepJob(eng, log, cfg.Scheduler.JobTimeout)
	if err := sched.Register(sweep, scheduler.NewIntervalSchedule(cfg.Scheduler.WakeSweepInterval)); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running", "reset_cron", cfg.Scheduler.ResetCron, "sweep_interval", cfg.Scheduler.WakeSweepInterval.String())

	<-ctx.Done()
	log.Info("received shutdown signal")
	return sched.Stop()
}
