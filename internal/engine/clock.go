package engine

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current time.  The engine never calls time.Now
// directly; tests inject a fake clock and advance it deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// ExpiryClock drives the engine's expiry scan on a fixed period.  A single
// goroutine owns the ticker, so ticks can never overlap: a slow tick simply
// delays the next one.  Stop shuts the loop down deterministically: once it
// returns, no further tick will run and no tick is left half-applied (each
// tick completes its whole scan under the engine lock).
type ExpiryClock struct {
	engine   *Engine
	period   time.Duration
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewExpiryClock returns a clock ticking at the given period.  Periods of
// zero or less fall back to one second.
func NewExpiryClock(e *Engine, period time.Duration) *ExpiryClock {
	if period <= 0 {
		period = time.Second
	}
	return &ExpiryClock{
		engine: e,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the tick loop in a background goroutine.  Calling Start
// twice is a programming error.
func (c *ExpiryClock) Start() {
	c.started = true
	go c.run()
}

func (c *ExpiryClock) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.engine.Tick(context.Background())
		}
	}
}

// Stop halts the loop and waits for any in-flight tick to finish.  It is
// safe to call more than once, and a no-op when the clock was never started.
func (c *ExpiryClock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started {
		<-c.done
	}
}
