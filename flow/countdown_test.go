package flow_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"verification-service/flow"
)

func TestCountdown_FiresOnExpiry(t *testing.T) {
	var fired atomic.Bool
	c := flow.StartCountdown(1, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, c.Remaining())
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	var fired atomic.Bool
	c := flow.StartCountdown(1, func() { fired.Store(true) })

	require.True(t, c.Stop())

	time.Sleep(1500 * time.Millisecond)
	require.False(t, fired.Load(), "a stopped countdown must never fire")
}

func TestCountdown_StopIsIdempotent(t *testing.T) {
	c := flow.StartCountdown(5, nil)

	require.True(t, c.Stop())
	require.False(t, c.Stop(), "second stop must be a no-op")
}

func TestCountdown_StopAfterExpiryIsNoop(t *testing.T) {
	var fired atomic.Bool
	c := flow.StartCountdown(1, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, 3*time.Second, 10*time.Millisecond)

	require.False(t, c.Stop(), "stopping after expiry must report nothing was stopped")
	require.NotPanics(t, func() { c.Stop() })
}

func TestCountdown_RemainingDecreases(t *testing.T) {
	c := flow.StartCountdown(5, nil)
	defer c.Stop()

	require.Equal(t, 5, c.Remaining())
	require.Eventually(t, func() bool { return c.Remaining() < 5 }, 3*time.Second, 50*time.Millisecond)
}
