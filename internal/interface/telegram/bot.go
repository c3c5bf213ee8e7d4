// Package telegram implements the Telegram chat surface of Pepegotchi.
// It receives updates (long polling or webhook), routes commands and button
// presses to handlers, and sends the rendered replies back.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/handler"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/middleware"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Update receiving modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Mode is the update receiving mode: "polling" or "webhook".
	Mode string

	// WebhookURL is the public URL Telegram posts updates to.
	WebhookURL string

	// WebhookSecret is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string

	// PollingTimeout is the long polling timeout in seconds.
	PollingTimeout int

	// PollingRetryDelay is the pause after a failed getUpdates.
	PollingRetryDelay time.Duration

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger

	// AllowedUpdates specifies which update types to receive.
	AllowedUpdates []string

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds how long Stop waits for handlers.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		Mode:                    ModePolling,
		PollingTimeout:          30,
		PollingRetryDelay:       3 * time.Second,
		Logger:                  slog.Default(),
		AllowedUpdates:          []string{"message", "callback_query"},
		MaxConcurrentUpdates:    100,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// API is the subset of the Bot API the bot uses. *telegram.Client
// implements it.
type API interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, limit, timeout int, allowedUpdates []string) ([]telegram.Update, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	SendPhoto(ctx context.Context, params telegram.SendPhotoParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, keyboard *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
	SetWebhook(ctx context.Context, params telegram.SetWebhookParams) error
	DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error
}

// Engine is everything the handlers need from the pet engine.
type Engine interface {
	handler.Starter
	handler.Carer
	handler.Shopper
}

// Metrics receives chat-level counters. *metrics.Manager implements it.
type Metrics interface {
	middleware.CommandRecorder
	middleware.RateLimitRecorder
	middleware.PanicRecorder
}

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	Engine Engine
	Images *presenter.Images

	// Metrics is optional.
	Metrics Metrics

	// RateLimit overrides the default per-user limits.
	RateLimit *middleware.RateLimitConfig
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config   BotConfig
	api      API
	router   *Router
	notifier *Notifier
	logger   *slog.Logger

	rateLimiter        *middleware.RateLimiter
	recoveryMiddleware *middleware.RecoveryMiddleware
	metricsMiddleware  *middleware.MetricsMiddleware

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	stopCh    chan struct{}
	updateSem chan struct{}
	wg        sync.WaitGroup

	stats *BotStats
}

// BotStats holds runtime statistics.
type BotStats struct {
	mu              sync.RWMutex
	StartedAt       time.Time
	UpdatesReceived int64
	UpdatesHandled  int64
	ErrorsCount     int64
	CommandsCount   map[string]int64
}

// NewBot creates a new Telegram bot with all dependencies.
func NewBot(config BotConfig, api API, deps BotDependencies) (*Bot, error) {
	if api == nil {
		return nil, errors.New("telegram API client is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("engine is required")
	}

	def := DefaultBotConfig()
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	if config.Mode == "" {
		config.Mode = def.Mode
	}
	if config.PollingTimeout <= 0 {
		config.PollingTimeout = def.PollingTimeout
	}
	if config.PollingRetryDelay <= 0 {
		config.PollingRetryDelay = def.PollingRetryDelay
	}
	if len(config.AllowedUpdates) == 0 {
		config.AllowedUpdates = def.AllowedUpdates
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = def.MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = def.GracefulShutdownTimeout
	}

	keyboards := presenter.NewKeyboardBuilder()
	e := deps.Engine

	router := NewRouter(RouterConfig{Logger: config.Logger, Debug: config.Debug})

	router.RegisterCommand(handler.NewStartHandler(e, deps.Images, keyboards), "start")
	router.RegisterCommand(handler.NewHelpHandler(), "ayuda", "help")
	router.RegisterCommand(handler.NewShopHandler(e, keyboards), "tienda", "shop")
	buy := handler.NewBuyHandler(e, keyboards)
	router.RegisterCommand(buy, "comprar", "buy")
	router.RegisterCommand(handler.NewUseHandler(e), "usar", "use")
	router.RegisterCommand(handler.NewInventoryHandler(e), "inventario", "inventory")
	router.RegisterCommand(handler.NewCheckinHandler(e), "checkin")
	router.RegisterCommand(handler.NewEventHandler(), "evento", "event")
	router.RegisterCommand(handler.NewFeedHandler(e), "alimentar", "feed")
	router.RegisterCommand(handler.NewPlayHandler(e), "jugar", "play")
	router.RegisterCommand(handler.NewSleepHandler(e), "dormir", "sleep")
	router.RegisterCommand(handler.NewStatusHandler(e, deps.Images, keyboards), "estado", "status")

	router.RegisterCallbackPrefix(presenter.CallbackBuy, buy)

	rl := middleware.DefaultRateLimitConfig()
	if deps.RateLimit != nil {
		rl = *deps.RateLimit
	}
	recovery := middleware.DefaultRecoveryConfig()
	recovery.UserErrorMessage = presenter.GenericErrorText
	recovery.Logger = config.Logger

	var commandRecorder middleware.CommandRecorder
	if deps.Metrics != nil {
		rl.Metrics = deps.Metrics
		recovery.Metrics = deps.Metrics
		commandRecorder = deps.Metrics
	}

	return &Bot{
		config:             config,
		api:                api,
		router:             router,
		notifier:           NewNotifier(api, deps.Images, config.Logger),
		logger:             config.Logger.With("component", "bot"),
		rateLimiter:        middleware.NewRateLimiter(rl),
		recoveryMiddleware: middleware.NewRecoveryMiddleware(recovery),
		metricsMiddleware:  middleware.NewMetricsMiddleware(commandRecorder),
		stopCh:             make(chan struct{}),
		updateSem:          make(chan struct{}, config.MaxConcurrentUpdates),
		stats: &BotStats{
			CommandsCount: make(map[string]int64),
		},
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start verifies the token and begins receiving updates. In polling mode it
// blocks until ctx is cancelled or Stop is called. In webhook mode it
// registers the webhook and returns; updates then arrive via HandleUpdate.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	b.stats.mu.Lock()
	b.stats.StartedAt = time.Now()
	b.stats.mu.Unlock()

	b.logger.Info("starting telegram bot",
		"mode", b.config.Mode,
		"debug", b.config.Debug,
		"commands", len(b.router.GetRegisteredCommands()),
		"callback_prefixes", b.router.GetRegisteredCallbackPrefixes(),
	)

	if err := b.verifyToken(ctx); err != nil {
		b.setRunning(false)
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	switch b.config.Mode {
	case ModePolling:
		// getUpdates is rejected while a webhook is set.
		if err := b.api.DeleteWebhook(ctx, false); err != nil {
			b.logger.Warn("failed to delete webhook before polling", "error", err)
		}
		return b.pollLoop(ctx)
	case ModeWebhook:
		return b.registerWebhook(ctx)
	default:
		b.setRunning(false)
		return fmt.Errorf("unknown bot mode: %s", b.config.Mode)
	}
}

// Stop gracefully stops the bot and waits for in-flight updates.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")
	close(b.stopCh)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the bot is currently running.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

func (b *Bot) setRunning(v bool) {
	b.runningMu.Lock()
	b.running = v
	b.runningMu.Unlock()
}

// verifyToken verifies the bot token by calling getMe.
func (b *Bot) verifyToken(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return err
	}

	b.logger.Info("bot verified",
		"id", me.ID,
		"username", me.Username,
	)
	return nil
}

// StartRateLimitCleanup drops idle rate limit buckets every interval.
func (b *Bot) StartRateLimitCleanup(ctx context.Context, interval time.Duration) {
	b.rateLimiter.StartCleanup(ctx, interval)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLLING MODE
// ══════════════════════════════════════════════════════════════════════════════

// pollLoop long-polls getUpdates and dispatches each update on its own
// goroutine, bounded by the update semaphore.
func (b *Bot) pollLoop(ctx context.Context) error {
	b.logger.Info("starting long polling", "timeout_s", b.config.PollingTimeout)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.stopCh:
			return nil
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, 100, b.config.PollingTimeout, b.config.AllowedUpdates)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-b.stopCh:
				return nil
			case <-time.After(b.config.PollingRetryDelay):
			}
			continue
		}

		for i := range updates {
			u := updates[i]
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}

			select {
			case b.updateSem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				defer func() { <-b.updateSem }()
				_ = b.processUpdate(ctx, &u)
			}()
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK MODE
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) registerWebhook(ctx context.Context) error {
	if b.config.WebhookURL == "" {
		b.setRunning(false)
		return errors.New("webhook URL is required for webhook mode")
	}

	err := b.api.SetWebhook(ctx, telegram.SetWebhookParams{
		URL:            b.config.WebhookURL,
		SecretToken:    b.config.WebhookSecret,
		MaxConnections: b.config.MaxConcurrentUpdates,
		AllowedUpdates: b.config.AllowedUpdates,
	})
	if err != nil {
		b.setRunning(false)
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	b.logger.Info("webhook registered", "url", b.config.WebhookURL)
	return nil
}

// WebhookSecret returns the secret the HTTP layer must check.
func (b *Bot) WebhookSecret() string {
	return b.config.WebhookSecret
}

// HandleUpdate processes one update delivered by the webhook endpoint.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	return b.processUpdate(ctx, update)
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// processUpdate handles a single Telegram update.
func (b *Bot) processUpdate(ctx context.Context, update *telegram.Update) error {
	b.stats.mu.Lock()
	b.stats.UpdatesReceived++
	b.stats.mu.Unlock()

	start := time.Now()

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		return nil
	}

	b.stats.mu.Lock()
	if err != nil {
		b.stats.ErrorsCount++
	} else {
		b.stats.UpdatesHandled++
	}
	b.stats.mu.Unlock()

	if err != nil {
		b.logger.Error("failed to handle update",
			"update_id", update.UpdateID,
			"error", err,
			"duration", time.Since(start),
		)
	}
	return err
}

// handleMessage processes a Telegram message. Plain text is ignored.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	command := telegram.ExtractCommand(msg)
	if command == "" {
		return nil
	}

	tid, err := shared.NewTelegramID(msg.From.ID)
	if err != nil {
		return nil
	}

	req := handler.Request{
		UserID:    tid.UserID().String(),
		FirstName: msg.From.FirstName,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Command:   command,
		Args:      telegram.ExtractCommandArgs(msg),
	}

	if b.config.Debug {
		b.logger.Debug("command received", "user_id", req.UserID, "command", command, "args", req.Args)
	}

	return b.serve(ctx, tid, req, "")
}

// handleCallbackQuery processes a button press.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq == nil || cq.From == nil {
		return nil
	}
	tid, err := shared.NewTelegramID(cq.From.ID)
	if err != nil {
		return nil
	}

	req := handler.Request{
		UserID:       tid.UserID().String(),
		FirstName:    cq.From.FirstName,
		ChatID:       cq.From.ID,
		CallbackData: cq.Data,
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		req.ChatID = cq.Message.Chat.ID
		req.MessageID = cq.Message.MessageID
	}
	if req.CallbackData == "" {
		return b.answer(ctx, cq.ID, "", false)
	}

	return b.serve(ctx, tid, req, cq.ID)
}

// serve runs one request through rate limiting, recovery and the router,
// then delivers the reply and any rank-up announcement, in that order.
func (b *Bot) serve(ctx context.Context, tid shared.TelegramID, req handler.Request, callbackID string) error {
	if rl := b.rateLimiter.Check(tid.Int64()); !rl.Allowed {
		if callbackID != "" {
			return b.answer(ctx, callbackID, presenter.RateLimitedText, true)
		}
		return b.sendText(ctx, req.ChatID, presenter.RateLimitedText)
	}

	route := b.router.Resolve(req)

	b.stats.mu.Lock()
	b.stats.CommandsCount[route.Name]++
	b.stats.mu.Unlock()

	timer := b.metricsMiddleware.Start(route.Name)

	var resp *handler.Response
	rec, err := b.recoveryMiddleware.RecoverWithHandler(ctx, req.UserID, route.Name, func() error {
		var herr error
		resp, herr = route.Handler.Handle(ctx, route.Request)
		return herr
	})

	switch {
	case rec.Recovered:
		timer.End(handler.OutcomeError)
		resp = &handler.Response{Text: rec.UserMessage, ParseMode: telegram.ParseModeHTML}
	case err != nil:
		timer.End(handler.OutcomeError)
		b.logger.Error("command failed",
			"user_id", req.UserID,
			"command", route.Name,
			"error", err,
		)
		resp = &handler.Response{Text: presenter.GenericErrorText, ParseMode: telegram.ParseModeHTML}
	case resp == nil:
		timer.End(handler.OutcomeOK)
		resp = &handler.Response{}
	default:
		outcome := resp.Outcome
		if outcome == "" {
			outcome = handler.OutcomeOK
		}
		timer.End(outcome)
	}

	// Answer first so the button stops spinning even if delivery fails.
	if callbackID != "" {
		if aerr := b.answer(ctx, callbackID, resp.CallbackText, false); aerr != nil {
			b.logger.Warn("answerCallbackQuery failed", "error", aerr)
		}
	}

	if derr := b.deliver(ctx, route.Request, resp); derr != nil {
		return derr
	}

	if resp.RankUp != nil {
		if nerr := b.announceRankUp(ctx, req.ChatID, *resp.RankUp); nerr != nil {
			b.logger.Warn("rank-up announcement failed", "user_id", req.UserID, "error", nerr)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

// deliver sends resp to the chat: an in-place edit, a photo with caption or
// a plain message.
func (b *Bot) deliver(ctx context.Context, req handler.Request, resp *handler.Response) error {
	if resp.Text == "" && resp.Photo == "" {
		return nil
	}

	parseMode := resp.ParseMode
	if parseMode == "" {
		parseMode = telegram.ParseModeHTML
	}
	markup := convertKeyboard(resp.Keyboard)

	if resp.Edit && req.MessageID != 0 {
		_, err := b.api.EditMessageText(ctx, req.ChatID, req.MessageID, resp.Text, parseMode, markup)
		if err == nil || telegram.IsMessageNotModified(err) {
			return nil
		}
		b.logger.Warn("edit failed, sending new message", "chat_id", req.ChatID, "error", err)
	}

	if resp.Photo != "" {
		_, err := b.api.SendPhoto(ctx, telegram.SendPhotoParams{
			ChatID:      req.ChatID,
			Path:        resp.Photo,
			Caption:     resp.Text,
			ParseMode:   parseMode,
			ReplyMarkup: markup,
		})
		if err == nil {
			return nil
		}
		b.logger.Warn("photo upload failed, sending text", "chat_id", req.ChatID, "photo", resp.Photo, "error", err)
	}

	_, err := b.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      req.ChatID,
		Text:        resp.Text,
		ParseMode:   parseMode,
		ReplyMarkup: markup,
	})
	if err != nil && telegram.IsUserBlocked(err) {
		b.logger.Debug("user blocked the bot", "chat_id", req.ChatID)
		return nil
	}
	return err
}

func (b *Bot) announceRankUp(ctx context.Context, chatID int64, up pet.RankUp) error {
	return b.notifier.AnnounceRankUp(ctx, chatID, up)
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: telegram.ParseModeHTML,
	})
	return err
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) error {
	return b.api.AnswerCallbackQuery(ctx, callbackID, text, alert)
}

// convertKeyboard converts a presenter keyboard to Bot API markup.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(kb.Rows)),
	}
	for _, row := range kb.Rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// GetStats returns current bot statistics.
func (b *Bot) GetStats() map[string]interface{} {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	var uptime time.Duration
	if !b.stats.StartedAt.IsZero() {
		uptime = time.Since(b.stats.StartedAt).Round(time.Second)
	}

	commandsCopy := make(map[string]int64, len(b.stats.CommandsCount))
	for k, v := range b.stats.CommandsCount {
		commandsCopy[k] = v
	}

	return map[string]interface{}{
		"mode":             b.config.Mode,
		"started_at":       b.stats.StartedAt,
		"uptime":           uptime.String(),
		"updates_received": b.stats.UpdatesReceived,
		"updates_handled":  b.stats.UpdatesHandled,
		"errors_count":     b.stats.ErrorsCount,
		"commands_count":   commandsCopy,
		"running":          b.IsRunning(),
	}
}

// Router returns the router for inspection.
func (b *Bot) Router() *Router {
	return b.router
}

// Notifier returns the proactive message sender.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}
