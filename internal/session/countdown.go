package session

import (
	"sync"
	"time"
)

// countdown runs onTick once per interval on its own goroutine until
// either onTick reports it is done or Stop is called. Stop is idempotent
// and safe to call from any goroutine; after it returns no further onTick
// can start. Stale firing after the owning session is gone is prevented
// one level up by the manager's generation token, not by convention here.
type countdown struct {
	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

func startCountdown(interval time.Duration, onTick func() bool) *countdown {
	c := &countdown{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if !onTick() {
					return
				}
			}
		}
	}()

	return c
}

func (c *countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
}
