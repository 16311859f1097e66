package orchestrator

import (
	"sync"
	"time"
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Countdown runs at most one one-second ticker at a time. Start cancels any
// running countdown before launching the new one.
type Countdown struct {
	newTicker TickerFactory
	interval  time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewCountdown(factory TickerFactory) *Countdown {
	if factory == nil {
		factory = NewRealTicker
	}
	return &Countdown{newTicker: factory, interval: time.Second}
}

// Start ticks seconds times. onTick receives the remaining count after each
// of the first seconds-1 ticks; the final tick calls onExpire instead.
// Both callbacks run on the countdown goroutine.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	ticker := c.newTicker(c.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for remaining := seconds; remaining > 0; {
			select {
			case <-stop:
				return
			case <-ticker.C():
			}

			// a tick and a cancel may be ready together; cancel wins
			select {
			case <-stop:
				return
			default:
			}

			remaining--
			if remaining > 0 {
				onTick(remaining)
			}
		}
		onExpire()
	}()
}

// Cancel stops the running countdown, if any. It does not wait for the
// goroutine; callbacks already running may still complete.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Wait blocks until the most recently started countdown goroutine has exited.
// It must not be called from a countdown callback.
func (c *Countdown) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Active reports whether a countdown goroutine is still running.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Countdown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
