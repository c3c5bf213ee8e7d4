// Package main is the entry point of the Pepegotchi Telegram bot.
//
// One process runs the bot (polling or webhook), the scheduler with the
// daily reset and the wake sweep, the wake timers, and the side HTTP server
// with health, metrics and the webhook endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/config"

	// Application layer
	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/application/eventhandler"

	// Infrastructure layer
	tgapi "github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/messaging"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/metrics"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/scheduler"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/pepegotchi/pepegotchi-bot/internal/interface/http"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/http/handlers"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/middleware"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"

	// Packages
	"github.com/pepegotchi/pepegotchi-bot/pkg/circuitbreaker"
	"github.com/pepegotchi/pepegotchi-bot/pkg/logger"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOpts := logger.DefaultOptions()
	logOpts.Level = cfg.Observability.LogLevel
	logOpts.Format = cfg.Observability.LogFormat
	logOpts.Attrs = []slog.Attr{
		slog.String("service", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	}
	log := logger.Setup(logOpts)
	log.Info("starting Pepegotchi bot",
		"env", cfg.App.Environment,
		"mode", cfg.Telegram.Mode,
		"store", cfg.Store.Driver,
		"lock", cfg.Store.LockDriver,
		"timezone", timeutil.TegucigalpaTZ.String(),
	)

	mx := metrics.NewManager(metrics.WithRuntimeCollectors())

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	backend, err := persistence.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		log.Info("closing storage...")
		if err := backend.Close(); err != nil {
			log.Warn("storage close failed", logger.Err(err))
		}
	}()

	if n, err := backend.CountPets(ctx); err != nil {
		log.Warn("failed to count pets", logger.Err(err))
	} else {
		mx.SetPets(n)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS, TIMERS, ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultConfig()
	busConfig.Logger = log
	busConfig.Metrics = mx
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		_ = bus.Close()
	}()

	timers := scheduler.NewWakeTimers(scheduler.WakeTimersConfig{
		Logger:   log,
		OnChange: mx.SetWakeTimers,
	})
	defer timers.Stop()

	eng, err := engine.New(engine.Config{
		Repo:      backend.Repo,
		Locker:    backend.Locker,
		Publisher: bus,
		Timers:    timers,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. TELEGRAM
	// ─────────────────────────────────────────────────────────────────────────
	breaker := circuitbreaker.TelegramAPIBreaker(
		func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		tgapi.IsServiceFailure,
	)

	clientConfig := tgapi.DefaultClientConfig(cfg.Telegram.BotToken())
	clientConfig.Breaker = breaker
	clientConfig.Metrics = mx
	clientConfig.Logger = log
	clientConfig.Debug = cfg.App.Debug
	client := tgapi.NewClient(clientConfig)

	botConfig := telegram.DefaultBotConfig()
	botConfig.Mode = cfg.Telegram.Mode
	botConfig.WebhookURL = cfg.Telegram.WebhookURL
	botConfig.WebhookSecret = cfg.Telegram.WebhookSecret
	botConfig.PollingTimeout = cfg.Telegram.PollingTimeout
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log

	rateLimit := middleware.DefaultRateLimitConfig()
	rateLimit.RequestsPerMinute = cfg.Telegram.UserRateLimit
	rateLimit.BurstSize = cfg.Telegram.UserRateLimitBurst
	rateLimit.WhitelistedUsers = cfg.RateLimitWhitelist()

	bot, err := telegram.NewBot(botConfig, client, telegram.BotDependencies{
		Engine:    eng,
		Images:    presenter.NewImages(cfg.Store.ImagesPath),
		Metrics:   mx,
		RateLimit: &rateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// Rank-ups are announced by the bot after its reply, so only the wake
	// notice is sent from the bus.
	if err := eventhandler.Register(bus, eventhandler.Deps{
		Wake:    bot.Notifier(),
		Metrics: mx,
		Logger:  log,
	}); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = newScheduler(cfg, eng, log, mx)
		if err != nil {
			return err
		}
	}

	// Sleepers from before a restart get their timers back; overdue ones
	// wake right away.
	if n, err := eng.RearmTimers(ctx); err != nil {
		log.Warn("failed to re-arm wake timers", logger.Err(err))
	} else {
		log.Info("wake timers re-armed", "count", n)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var httpServer *httpserver.Server
	if cfg.HTTP.Enabled {
		health := handlers.NewCompositeHealthChecker(cfg.App.Version)
		for name, p := range backend.Checks {
			health.AddCheck(name, handlers.NewPingCheck(p))
		}
		health.AddCheck("telegram_api", func(context.Context) error {
			if breaker.IsOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		})

		httpConfig := httpserver.DefaultConfig()
		httpConfig.Host = cfg.HTTP.Host
		httpConfig.Port = cfg.HTTP.Port
		httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
		httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
		httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

		httpDeps := httpserver.Dependencies{
			Logger:  log,
			Health:  health,
			Bot:     bot,
			Metrics: mx.Handler(),
		}
		if cfg.Telegram.Mode == config.ModeWebhook {
			httpDeps.Webhook = handlers.NewTelegramWebhook(bot, bot.WebhookSecret(), log)
		}
		httpServer = httpserver.NewServer(httpConfig, httpDeps)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. START SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 3)

	if httpServer != nil {
		go func() {
			for err := range httpServer.StartAsync() {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	bot.StartRateLimitCleanup(ctx, 5*time.Minute)

	go func() {
		if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	log.Info("Pepegotchi bot is running", "telegram_mode", cfg.Telegram.Mode, "http", cfg.HTTP.Enabled)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case runErr = <-errCh:
		log.Error("service error", logger.Err(runErr))
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", logger.Err(err))
		}
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		}
	}

	log.Info("shutdown completed")
	return runErr
}

// newScheduler registers the daily reset and the wake sweep.
func newScheduler(cfg *config.Config, eng *engine.Engine, log *slog.Logger, mx *metrics.Manager) (*scheduler.Scheduler, error) {
	schedConfig := scheduler.DefaultConfig()
	schedConfig.Logger = log
	schedConfig.Metrics = mx
	sched := scheduler.NewScheduler(schedConfig)

	resetSchedule, err := scheduler.ParseCron(cfg.Scheduler.ResetCron, timeutil.TegucigalpaTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid reset schedule: %w", err)
	}

	resetConfig := jobs.DefaultDailyResetConfig()
	resetConfig.Timeout = cfg.Scheduler.JobTimeout
	reset := jobs.NewDailyResetJob(eng, log, resetConfig, func(r *engine.ResetReport) {
		mx.SetPets(r.Users)
	})
	if err := sched.Register(reset, resetSchedule); err != nil {
		return nil, fmt.Errorf("failed to register daily reset: %w", err)
	}

	sweep := jobs.NewWakeSweepJob(eng, log, cfg.Scheduler.JobTimeout)
	if err := sched.Register(sweep, scheduler.NewIntervalSchedule(cfg.Scheduler.WakeSweepInterval)); err != nil {
		return nil, fmt.Errorf("failed to register wake sweep: %w", err)
	}

	return sched, nil
}
