package recorder

import (
	"sync"
	"time"
)

// Countdown is a single cancellable scheduled task that drives both the
// per-tick display update and the final expiry.
//
// Callbacks run on the countdown goroutine and must not call Stop.
type Countdown struct {
	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}
}

// Start schedules onTick after every tick with the time left (total-tick,
// total-2*tick ... 0) and onExpire once total has elapsed. A running
// countdown is stopped first.
func (c *Countdown) Start(total, tick time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	c.Stop()

	cancel := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		remaining := total
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
			}

			// Stop 与 tick 同时就绪时优先取消
			select {
			case <-cancel:
				return
			default:
			}

			remaining -= tick
			if remaining < 0 {
				remaining = 0
			}
			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}()
}

// Stop cancels the pending tick and expiry and waits until no callback is
// running. Calling Stop on an idle countdown is a no-op.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	close(cancel)
	<-done
}

// Running reports whether a countdown is scheduled.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
