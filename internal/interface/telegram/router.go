package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/handler"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables debug logging for routing decisions.
	Debug bool
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Resolves commands (with aliases) and callback prefixes to handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes parsed requests to handlers.
type Router struct {
	config RouterConfig
	logger *slog.Logger

	mu sync.RWMutex

	// commands maps every accepted name to its handler.
	commands map[string]handler.Handler

	// canonical maps aliases to the name used in metrics.
	canonical map[string]string

	callbackPrefixes map[string]handler.Handler

	defaultCommand  handler.Handler
	defaultCallback handler.Handler
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Router{
		config:           config,
		logger:           config.Logger.With("component", "router"),
		commands:         make(map[string]handler.Handler),
		canonical:        make(map[string]string),
		callbackPrefixes: make(map[string]handler.Handler),
		defaultCommand: handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
			return &handler.Response{
				Text:      presenter.UnknownCommandText,
				ParseMode: handler.ParseModeHTML,
				Outcome:   handler.OutcomeOK,
			}, nil
		}),
		defaultCallback: handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
			return &handler.Response{Outcome: handler.OutcomeOK}, nil
		}),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCommand registers h under name and its aliases. Names are given
// without the leading "/"; the first one is the canonical name.
func (r *Router) RegisterCommand(h handler.Handler, name string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range append([]string{name}, aliases...) {
		n = strings.ToLower(n)
		r.commands[n] = h
		r.canonical[n] = name
	}

	if r.config.Debug {
		r.logger.Debug("registered command handler", "command", name, "aliases", aliases)
	}
}

// RegisterCallbackPrefix registers a handler for callbacks matching a prefix.
// The longest matching prefix wins.
func (r *Router) RegisterCallbackPrefix(prefix string, h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callbackPrefixes[prefix] = h

	if r.config.Debug {
		r.logger.Debug("registered callback prefix handler", "prefix", prefix)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Route is the resolved destination of a request.
type Route struct {
	// Name identifies the route in metrics and logs: the canonical command
	// name, "callback:<prefix>" or "unknown".
	Name string

	Handler handler.Handler

	// Request is the request to pass; "cmd:" callbacks are rewritten into
	// plain commands.
	Request handler.Request
}

// Resolve finds the handler for req.
func (r *Router) Resolve(req handler.Request) Route {
	if req.IsCallback() {
		if cmd, ok := strings.CutPrefix(req.CallbackData, presenter.CallbackCommand); ok {
			req.Command = cmd
			req.Args = ""
			req.CallbackData = ""
			return r.resolveCommand(req)
		}
		return r.resolveCallback(req)
	}
	return r.resolveCommand(req)
}

func (r *Router) resolveCommand(req handler.Request) Route {
	name := strings.ToLower(req.Command)

	r.mu.RLock()
	h, ok := r.commands[name]
	canonical := r.canonical[name]
	def := r.defaultCommand
	r.mu.RUnlock()

	if !ok {
		if r.config.Debug {
			r.logger.Debug("no handler for command", "command", req.Command)
		}
		return Route{Name: "unknown", Handler: def, Request: req}
	}
	return Route{Name: canonical, Handler: h, Request: req}
}

func (r *Router) resolveCallback(req handler.Request) Route {
	r.mu.RLock()
	var matchedPrefix string
	var matched handler.Handler
	for prefix, h := range r.callbackPrefixes {
		if strings.HasPrefix(req.CallbackData, prefix) && len(prefix) > len(matchedPrefix) {
			matchedPrefix = prefix
			matched = h
		}
	}
	def := r.defaultCallback
	r.mu.RUnlock()

	if matched == nil {
		if r.config.Debug {
			r.logger.Debug("no handler for callback", "data", req.CallbackData)
		}
		return Route{Name: "unknown", Handler: def, Request: req}
	}
	return Route{Name: "callback:" + matchedPrefix, Handler: matched, Request: req}
}

// ══════════════════════════════════════════════════════════════════════════════
// INTROSPECTION
// ══════════════════════════════════════════════════════════════════════════════

// GetRegisteredCommands returns all accepted command names, sorted.
func (r *Router) GetRegisteredCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetRegisteredCallbackPrefixes returns the callback prefixes, sorted.
func (r *Router) GetRegisteredCallbackPrefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.callbackPrefixes))
	for prefix := range r.callbackPrefixes {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}
