package app

import (
	"sync"
	"time"
)

// RedactFunc called when a scheduled message reaches its disappear time
type RedactFunc func(roomID, messageID string)

// DisappearScheduler arms one timer per scheduled message and fires the
// redaction callback when the deadline passes. Timers survive nothing,
// restore re-arms them from the snapshot on boot.
type DisappearScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	redact RedactFunc
}

// NewDisappearScheduler init scheduler
func NewDisappearScheduler(redact RedactFunc) *DisappearScheduler {
	return &DisappearScheduler{
		timers: make(map[string]*time.Timer),
		redact: redact,
	}
}

// Schedule arm the timer for one message, past deadlines fire immediately
func (ds *DisappearScheduler) Schedule(roomID, messageID string, at time.Time) {
	until := time.Until(at)
	if until < 0 {
		until = 0
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if old, ok := ds.timers[messageID]; ok {
		old.Stop()
	}
	ds.timers[messageID] = time.AfterFunc(until, func() {
		ds.mu.Lock()
		delete(ds.timers, messageID)
		ds.mu.Unlock()
		ds.redact(roomID, messageID)
	})
}

// Cancel drop the timer for a message that no longer needs one
func (ds *DisappearScheduler) Cancel(messageID string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if t, ok := ds.timers[messageID]; ok {
		t.Stop()
		delete(ds.timers, messageID)
	}
}

// StopAll stop every pending timer, used on shutdown
func (ds *DisappearScheduler) StopAll() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for id, t := range ds.timers {
		t.Stop()
		delete(ds.timers, id)
	}
}
