package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

type recorder struct {
	mu        sync.Mutex
	published []string
	failures  int
}

func (r *recorder) RecordPublish(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, eventType)
}

func (r *recorder) RecordHandlerExecution(_ string, _ time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.failures++
	}
}

func TestInMemoryEventBus_SyncOrder(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventPetWokeUp, func(e shared.Event) error {
		got = append(got, "woke")
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+string(e.EventType()))
		return nil
	}))

	now := time.Now()
	require.NoError(t, bus.Publish(shared.NewPetWokeUpEvent("1", "e", shared.WakeSourceLazy, now)))
	require.NoError(t, bus.Publish(shared.NewRankUpEvent("1", "bebe", "joven", 100, now)))

	assert.Equal(t, []string{"woke", "all:" + string(shared.EventPetWokeUp), "all:" + string(shared.EventRankUp)}, got)
}

func TestInMemoryEventBus_HandlerFailuresAreSwallowed(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Metrics = rec
	bus := NewInMemoryEventBus(cfg)

	called := false
	require.NoError(t, bus.Subscribe(shared.EventRankUp, func(shared.Event) error {
		return errors.New("telegram down")
	}))
	require.NoError(t, bus.Subscribe(shared.EventRankUp, func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventRankUp, func(shared.Event) error {
		called = true
		return nil
	}))

	err := bus.Publish(shared.NewRankUpEvent("1", "bebe", "joven", 100, time.Now()))
	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 2, rec.failures)
	assert.Equal(t, []string{string(shared.EventRankUp)}, rec.published)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(Config{AsyncMode: true, WorkerPoolSize: 2})

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewPetCreatedEvent("1", "Pepe", time.Now())))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewPetCreatedEvent("1", "", time.Now())), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Error(t, bus.Publish(nil))
}
