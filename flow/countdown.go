package flow

import (
	"sync"
	"time"
)

// Countdown is a cancellable auto-redirect timer. It ticks once per second,
// fires onExpire when it reaches zero, and can be stopped exactly once.
// Stopping after expiry, or stopping twice, is a no-op.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	stopped   bool
	expired   bool
	done      chan struct{}
	onExpire  func()
}

// StartCountdown begins a countdown of the given number of seconds.
func StartCountdown(seconds int, onExpire func()) *Countdown {
	c := &Countdown{
		remaining: seconds,
		done:      make(chan struct{}),
		onExpire:  onExpire,
	}
	go c.run()
	return c
}

func (c *Countdown) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.tick() {
				return
			}
		}
	}
}

// tick decrements the counter and fires onExpire when it hits zero. The
// cancelled check happens under the same lock that Stop takes, so a Stop
// racing with the final tick either wins (no navigation) or loses cleanly
// (navigation happened, Stop becomes a no-op).
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if c.stopped || c.expired {
		c.mu.Unlock()
		return true
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return false
	}
	c.expired = true
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
	return true
}

// Stop cancels the countdown. It reports whether this call actually stopped
// a live countdown; calls after expiry or after a prior Stop return false
// and have no effect.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.expired {
		return false
	}
	c.stopped = true
	close(c.done)
	return true
}

// Remaining returns the seconds left on the countdown.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
