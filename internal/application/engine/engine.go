// Package engine contains the pet action engine: every user-facing
// operation runs here as lock, load, lazy wake, apply, rank check, save,
// unlock and publish.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// Locker serialises operations on one user. The returned unlock func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// WakeScheduler arms a one-shot wake timer for a sleep period.
type WakeScheduler interface {
	Schedule(userID, epoch string, at time.Time, fn func())
}

// Config wires the engine dependencies.
type Config struct {
	Repo      pet.Repository
	Locker    Locker
	Clock     timeutil.Clock
	Publisher shared.EventPublisher

	// Timers is optional; without it sleepers are only woken lazily and by
	// the sweep job.
	Timers WakeScheduler

	Logger *slog.Logger

	// NewEpoch generates sleep epoch ids. Defaults to uuid.NewString.
	NewEpoch func() string
}

// Engine runs pet operations.
type Engine struct {
	repo      pet.Repository
	locker    Locker
	clock     timeutil.Clock
	publisher shared.EventPublisher
	timers    WakeScheduler
	logger    *slog.Logger
	newEpoch  func() string
}

// New creates an Engine. Repo and Locker are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Repo == nil {
		return nil, errors.New("engine: repository is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("engine: locker is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewEpoch == nil {
		cfg.NewEpoch = uuid.NewString
	}

	return &Engine{
		repo:      cfg.Repo,
		locker:    cfg.Locker,
		clock:     cfg.Clock,
		publisher: cfg.Publisher,
		timers:    cfg.Timers,
		logger:    cfg.Logger.With("component", "engine"),
		newEpoch:  cfg.NewEpoch,
	}, nil
}

// Now returns the engine clock reading in the bot time zone.
func (e *Engine) Now() time.Time {
	return timeutil.ToLocal(e.clock.Now())
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// Result is the outcome of a mutating operation.
type Result struct {
	Action pet.Action

	// Record is the state after the operation was persisted.
	Record *pet.Record

	Cost           int
	XPGained       int
	EnergyGained   int
	CurrencyGained int

	// UsesToday is the daily counter of the action after this use
	// (feed and play only).
	UsesToday int

	// Item is set by Buy and Use.
	Item *pet.Item

	// WakeAt is set by Sleep.
	WakeAt time.Time

	// RankUp is non-nil when the operation crossed a rank boundary.
	RankUp *pet.RankUp

	// WokeUp reports that the lazy wake transition ran first.
	WokeUp bool
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// applyFunc mutates the working copy of a record. It returns the events the
// operation produces; they are published only if the record is saved.
type applyFunc func(rec *pet.Record, now time.Time) ([]shared.Event, error)

type request struct {
	op     string
	userID string

	// apply is nil for read operations.
	apply applyFunc

	// wakeSource labels the wake event produced by this request.
	wakeSource string
}

type outcome struct {
	before *pet.Record
	record *pet.Record
	now    time.Time
	woke   bool
	rankUp *pet.RankUp
}

// run executes req under the user lock and publishes the resulting events
// after the lock is released.
func (e *Engine) run(ctx context.Context, req request) (*outcome, error) {
	if strings.TrimSpace(req.userID) == "" {
		return nil, shared.NewDomainError("pet", req.op, shared.ErrInvalidID, "empty user id")
	}
	out, events, err := e.runLocked(ctx, req)
	e.publish(events)
	return out, err
}

func (e *Engine) runLocked(ctx context.Context, req request) (*outcome, []shared.Event, error) {
	unlock, err := e.locker.Lock(ctx, req.userID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	return e.process(ctx, req)
}

// process runs the pipeline body. The caller holds the user lock.
func (e *Engine) process(ctx context.Context, req request) (*outcome, []shared.Event, error) {
	if req.wakeSource == "" {
		req.wakeSource = shared.WakeSourceLazy
	}

	rec, err := e.repo.Get(ctx, req.userID)
	if err != nil {
		if !errors.Is(err, shared.ErrUserNotInitialized) {
			e.logger.Error("load failed", "op", req.op, "user_id", req.userID, "error", err)
		}
		return nil, nil, err
	}

	now := e.Now()
	epoch := rec.Sleep.Epoch
	woke := pet.WakeIfDue(rec, now)

	var events []shared.Event
	if woke {
		events = append(events, shared.NewPetWokeUpEvent(req.userID, epoch, req.wakeSource, now))
	}

	if req.apply == nil {
		if woke {
			rec.UpdatedAt = now
			if err := e.repo.Save(ctx, rec); err != nil {
				e.logger.Error("persist wake failed", "op", req.op, "user_id", req.userID, "error", err)
				return nil, nil, err
			}
		}
		return &outcome{before: rec, record: rec, now: now, woke: woke}, events, nil
	}

	work := rec.Clone()
	actionEvents, applyErr := req.apply(work, now)
	if applyErr != nil {
		if !woke {
			return nil, nil, applyErr
		}
		rec.UpdatedAt = now
		if err := e.repo.Save(ctx, rec); err != nil {
			e.logger.Error("persist wake failed", "op", req.op, "user_id", req.userID, "error", err)
			return nil, nil, applyErr
		}
		return nil, events, applyErr
	}
	events = append(events, actionEvents...)

	rankUp := pet.ApplyRankCheck(work)
	if rankUp != nil {
		events = append(events, shared.NewRankUpEvent(req.userID, rankUp.From.Key, rankUp.To.Key, rankUp.Bonus, now))
	}

	work.UpdatedAt = now
	if err := e.repo.Save(ctx, work); err != nil {
		e.logger.Error("save failed", "op", req.op, "user_id", req.userID, "error", err)
		return nil, nil, err
	}

	e.logger.Debug("operation applied",
		"op", req.op,
		"user_id", req.userID,
		"experience", work.Experience,
		"currency", work.Currency,
	)

	return &outcome{before: rec, record: work, now: now, woke: woke, rankUp: rankUp}, events, nil
}

func (e *Engine) publish(events []shared.Event) {
	if e.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := e.publisher.Publish(ev); err != nil {
			e.logger.Warn("publish event failed", "event_type", ev.EventType(), "user_id", ev.AggregateID(), "error", err)
		}
	}
}

func (o *outcome) result(action pet.Action) *Result {
	return &Result{
		Action:       action,
		Record:       o.record,
		XPGained:     o.record.Experience - o.before.Experience,
		EnergyGained: o.record.Energy - o.before.Energy,
		RankUp:       o.rankUp,
		WokeUp:       o.woke,
	}
}
