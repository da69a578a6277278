package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l := New("datasette", 5)
	assert.Equal(t, "datasette", l.Name())
	assert.InDelta(t, 5.0, l.Limit(), 0.001)

	assert.InDelta(t, 1.0, New("zero", 0).Limit(), 0.001)
}

func TestWaitAllowsBurst(t *testing.T) {
	l := New("burst", 3)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPauseDelaysWait(t *testing.T) {
	l := New("paused", 100)
	l.Pause(80 * time.Millisecond)
	l.Pause(10 * time.Millisecond) // shorter pause keeps the longer one

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)

	l.Pause(0)
	start = time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitCancelledDuringPause(t *testing.T) {
	l := New("cancel", 10)
	l.Pause(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "cancel")
}
