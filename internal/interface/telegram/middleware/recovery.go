// Package middleware contains Telegram bot middlewares for request processing.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers and converts them to a friendly apology.
// The stack goes to the log, never to the chat.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultPanicMessage is sent to the user after a recovered panic.
const DefaultPanicMessage = "😔 Algo salió mal. Inténtalo de nuevo en unos minutos."

// PanicRecorder counts recovered panics.
type PanicRecorder interface {
	RecordPanic()
}

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// UserErrorMessage is the message sent to users when a panic occurs.
	UserErrorMessage string

	// MaxPanicsPerMinute limits how many panics are logged in full per
	// minute. Panics past the limit are still recovered.
	MaxPanicsPerMinute int

	// OnPanic is called for every logged panic.
	OnPanic func(ctx context.Context, info *PanicInfo)

	Metrics PanicRecorder
	Logger  *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace:   true,
		UserErrorMessage:   DefaultPanicMessage,
		MaxPanicsPerMinute: 100,
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	Error      error
	PanicValue any
	StackTrace string
	UserID     string
	Command    string
	Timestamp  time.Time
}

// RecoveryResult represents the result of running a handler.
type RecoveryResult struct {
	// Recovered indicates a panic was recovered.
	Recovered bool

	// PanicInfo is nil when the panic was not logged in full.
	PanicInfo *PanicInfo

	// UserMessage is the message to show to the user.
	UserMessage string
}

// RecoveryMiddleware recovers from panics in handlers.
type RecoveryMiddleware struct {
	config  RecoveryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultPanicMessage
	}
	if config.MaxPanicsPerMinute <= 0 {
		config.MaxPanicsPerMinute = 100
	}
	return &RecoveryMiddleware{
		config:  config,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.MaxPanicsPerMinute)), config.MaxPanicsPerMinute),
		logger:  config.Logger.With("component", "recovery"),
	}
}

// RecoverWithHandler executes a handler and recovers from any panics. The
// handler's own error is returned unchanged.
func (m *RecoveryMiddleware) RecoverWithHandler(
	ctx context.Context,
	userID string,
	command string,
	handler func() error,
) (result *RecoveryResult, err error) {
	result = &RecoveryResult{}

	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, userID, command)
			err = nil
		}
	}()

	err = handler()
	return result, err
}

func (m *RecoveryMiddleware) handlePanic(ctx context.Context, value any, userID, command string) *RecoveryResult {
	if m.config.Metrics != nil {
		m.config.Metrics.RecordPanic()
	}

	res := &RecoveryResult{Recovered: true, UserMessage: m.config.UserErrorMessage}

	// A crash loop should not flood the log with stacks.
	if !m.limiter.Allow() {
		m.logger.Error("panic recovered (rate limited)", "user_id", userID, "command", command)
		return res
	}

	info := &PanicInfo{
		Error:      toError(value),
		PanicValue: value,
		UserID:     userID,
		Command:    command,
		Timestamp:  time.Now(),
	}
	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	m.logger.Error("panic recovered",
		"user_id", userID,
		"command", command,
		"panic", fmt.Sprint(value),
		"stack", info.StackTrace,
	)

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	res.PanicInfo = info
	return res
}

// toError converts a panic value to an error.
func toError(value any) error {
	switch v := value.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
