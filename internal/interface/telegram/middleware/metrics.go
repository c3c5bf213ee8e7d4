package middleware

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// Times each command and reports it to Prometheus. Keeps in-process counters
// for the health endpoint.
// ══════════════════════════════════════════════════════════════════════════════

// CommandRecorder receives command timings.
type CommandRecorder interface {
	RecordCommand(command, outcome string, d time.Duration)
}

// MetricsMiddleware times commands.
type MetricsMiddleware struct {
	recorder CommandRecorder
	now      func() time.Time

	mu       sync.Mutex
	commands map[string]*CommandMetrics
}

// CommandMetrics aggregates one command.
type CommandMetrics struct {
	Count         int64
	Errors        int64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// AvgDuration returns the mean latency.
func (c CommandMetrics) AvgDuration() time.Duration {
	if c.Count == 0 {
		return 0
	}
	return c.TotalDuration / time.Duration(c.Count)
}

// NewMetricsMiddleware creates a metrics middleware. recorder may be nil.
func NewMetricsMiddleware(recorder CommandRecorder) *MetricsMiddleware {
	return &MetricsMiddleware{
		recorder: recorder,
		now:      time.Now,
		commands: make(map[string]*CommandMetrics),
	}
}

// RequestContext tracks one command in flight.
type RequestContext struct {
	m       *MetricsMiddleware
	command string
	start   time.Time
	once    sync.Once
}

// Start begins timing a command.
func (m *MetricsMiddleware) Start(command string) *RequestContext {
	return &RequestContext{m: m, command: command, start: m.now()}
}

// End records the command with its outcome. Only the first call counts.
func (rc *RequestContext) End(outcome string) {
	rc.once.Do(func() {
		d := rc.m.now().Sub(rc.start)
		rc.m.record(rc.command, outcome, d)
	})
}

func (m *MetricsMiddleware) record(command, outcome string, d time.Duration) {
	if m.recorder != nil {
		m.recorder.RecordCommand(command, outcome, d)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cm, ok := m.commands[command]
	if !ok {
		cm = &CommandMetrics{}
		m.commands[command] = cm
	}
	cm.Count++
	if outcome == "error" {
		cm.Errors++
	}
	cm.TotalDuration += d
	if d > cm.MaxDuration {
		cm.MaxDuration = d
	}
}

// Snapshot returns a copy of the per-command counters.
func (m *MetricsMiddleware) Snapshot() map[string]CommandMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]CommandMetrics, len(m.commands))
	for k, v := range m.commands {
		out[k] = *v
	}
	return out
}
