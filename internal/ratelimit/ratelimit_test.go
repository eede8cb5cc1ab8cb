package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForMode_SelectsCapacityByTradingMode(t *testing.T) {
	paper := ForMode(true, 2, 19)
	live := ForMode(false, 2, 19)

	// Paper's burst is 2: two Allow() calls succeed, a third immediately fails.
	assert.True(t, paper.Allow())
	assert.True(t, paper.Allow())
	assert.False(t, paper.Allow())

	// Live's burst is 19: two calls should never exhaust it.
	assert.True(t, live.Allow())
	assert.True(t, live.Allow())
}

func TestWait_BlocksUntilTokenAvailable(t *testing.T) {
	l := New(1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err)
}
