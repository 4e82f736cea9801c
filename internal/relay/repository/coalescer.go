package repository

import (
	"sort"
	"sync"
	"time"
)

// DefaultCoalesceWindow quiet interval before a save fires
const DefaultCoalesceWindow = 2 * time.Second

// FlushFunc receives the dirty room ids collected during one window
type FlushFunc func(dirty []string)

// Coalescer debounced persistence trigger. One pending timer at most: the
// first dirty call of a window arms it, later calls just widen the dirty
// set. Dirty calls that land while a flush is running fold into the next
// window because fire swaps the set out before flushing.
type Coalescer struct {
	mu     sync.Mutex
	window time.Duration
	flush  FlushFunc
	timer  *time.Timer
	dirty  map[string]struct{}
}

// NewCoalescer create a coalescer, flush runs on the timer goroutine
func NewCoalescer(window time.Duration, flush FlushFunc) *Coalescer {
	return &Coalescer{
		window: window,
		flush:  flush,
		dirty:  map[string]struct{}{},
	}
}

// Dirty mark a room changed, arms the timer when idle
func (c *Coalescer) Dirty(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[roomID] = struct{}{}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.fire)
	}
}

func (c *Coalescer) fire() {
	ids := c.take()
	if len(ids) > 0 {
		c.flush(ids)
	}
}

// FlushNow drain synchronously, shutdown path
func (c *Coalescer) FlushNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	ids := c.take()
	if len(ids) > 0 {
		c.flush(ids)
	}
}

func (c *Coalescer) take() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.dirty))
	for id := range c.dirty {
		ids = append(ids, id)
	}
	c.dirty = map[string]struct{}{}
	c.timer = nil
	sort.Strings(ids)
	return ids
}
