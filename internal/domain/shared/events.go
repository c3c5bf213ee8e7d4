// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the action engine after a record is persisted.
const (
	EventPetCreated      EventType = "pet.created"
	EventActionPerformed EventType = "pet.action_performed"
	EventRankUp          EventType = "pet.rank_up"
	EventPetFellAsleep   EventType = "pet.fell_asleep"
	EventPetWokeUp       EventType = "pet.woke_up"
	EventDailyReset      EventType = "system.daily_reset"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with at.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pet Events
// ═══════════════════════════════════════════════════════════════════════════

// PetCreatedEvent is emitted when /start creates a new record.
type PetCreatedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Payload implements Event interface.
func (e PetCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"name":    e.Name,
	}
}

// NewPetCreatedEvent creates a new PetCreatedEvent.
func NewPetCreatedEvent(userID, name string, at time.Time) PetCreatedEvent {
	return PetCreatedEvent{
		BaseEvent: NewBaseEvent(EventPetCreated, userID, at),
		UserID:    userID,
		Name:      name,
	}
}

// ActionPerformedEvent is emitted after any successful state-changing action.
type ActionPerformedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Action   string `json:"action"` // feed, play, sleep, checkin, buy, use
	Cost     int    `json:"cost"`
	XPGained int    `json:"xp_gained"`
}

// Payload implements Event interface.
func (e ActionPerformedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"action":    e.Action,
		"cost":      e.Cost,
		"xp_gained": e.XPGained,
	}
}

// NewActionPerformedEvent creates a new ActionPerformedEvent.
func NewActionPerformedEvent(userID, action string, cost, xpGained int, at time.Time) ActionPerformedEvent {
	return ActionPerformedEvent{
		BaseEvent: NewBaseEvent(EventActionPerformed, userID, at),
		UserID:    userID,
		Action:    action,
		Cost:      cost,
		XPGained:  xpGained,
	}
}

// RankUpEvent is emitted when a mutation moves a pet into a new rank tier.
type RankUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	FromRank string `json:"from_rank"`
	ToRank   string `json:"to_rank"`
	Bonus    int    `json:"bonus"`
}

// Payload implements Event interface.
func (e RankUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"from_rank": e.FromRank,
		"to_rank":   e.ToRank,
		"bonus":     e.Bonus,
	}
}

// NewRankUpEvent creates a new RankUpEvent.
func NewRankUpEvent(userID, fromRank, toRank string, bonus int, at time.Time) RankUpEvent {
	return RankUpEvent{
		BaseEvent: NewBaseEvent(EventRankUp, userID, at),
		UserID:    userID,
		FromRank:  fromRank,
		ToRank:    toRank,
		Bonus:     bonus,
	}
}

// PetFellAsleepEvent is emitted when a sleep period starts.
type PetFellAsleepEvent struct {
	BaseEvent
	UserID string    `json:"user_id"`
	Epoch  string    `json:"epoch"`
	WakeAt time.Time `json:"wake_at"`
}

// Payload implements Event interface.
func (e PetFellAsleepEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"epoch":   e.Epoch,
		"wake_at": e.WakeAt.Format(time.RFC3339),
	}
}

// NewPetFellAsleepEvent creates a new PetFellAsleepEvent.
func NewPetFellAsleepEvent(userID, epoch string, wakeAt, at time.Time) PetFellAsleepEvent {
	return PetFellAsleepEvent{
		BaseEvent: NewBaseEvent(EventPetFellAsleep, userID, at),
		UserID:    userID,
		Epoch:     epoch,
		WakeAt:    wakeAt,
	}
}

// Wake sources.
const (
	WakeSourceLazy  = "lazy"  // observed by the next command after wake_at
	WakeSourceTimer = "timer" // fired by the one-shot wake timer or the sweep job
)

// PetWokeUpEvent is emitted exactly once per sleep period, by whichever
// wake path commits the transition first.
type PetWokeUpEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Epoch  string `json:"epoch"`
	Source string `json:"source"`
}

// Payload implements Event interface.
func (e PetWokeUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"epoch":   e.Epoch,
		"source":  e.Source,
	}
}

// NewPetWokeUpEvent creates a new PetWokeUpEvent.
func NewPetWokeUpEvent(userID, epoch, source string, at time.Time) PetWokeUpEvent {
	return PetWokeUpEvent{
		BaseEvent: NewBaseEvent(EventPetWokeUp, userID, at),
		UserID:    userID,
		Epoch:     epoch,
		Source:    source,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// DailyResetEvent is emitted when the midnight reset finishes.
type DailyResetEvent struct {
	BaseEvent
	Day    string `json:"day"`
	Users  int    `json:"users"`
	Failed int    `json:"failed"`
}

// Payload implements Event interface.
func (e DailyResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day":    e.Day,
		"users":  e.Users,
		"failed": e.Failed,
	}
}

// NewDailyResetEvent creates a new DailyResetEvent.
func NewDailyResetEvent(day string, users, failed int, at time.Time) DailyResetEvent {
	return DailyResetEvent{
		BaseEvent: NewBaseEvent(EventDailyReset, "system", at),
		Day:       day,
		Users:     users,
		Failed:    failed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
