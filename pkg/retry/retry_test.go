package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type floodError struct{ wait time.Duration }

func (e floodError) Error() string             { return "flood" }
func (e floodError) RetryAfter() time.Duration { return e.wait }

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(5 * time.Millisecond), WithJitter(0)}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("temporary"))
		}
		return nil
	}, append(fast(), WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	base := errors.New("bad request")
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(base)
	}, fast()...)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errors.New("still down"))
	}, append(fast(), WithMaxAttempts(3))...)

	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestDo_HonoursRetryAfterCappedByMaxDelay(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return Retryable(floodError{wait: time.Hour})
		}
		return nil
	}, fast()...)

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnectRetrier_RetriesPlainErrors(t *testing.T) {
	calls := 0
	r := ConnectRetrier(fast()...)
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection refused")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
