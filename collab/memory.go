package collab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// callRecord is one persisted call as seen by MemoryRecorder.
type callRecord struct {
	CallID    string
	From      string
	To        string
	Direction Direction
	State     string
	StateAt   time.Time
	Events    []recordedEvent
}

type recordedEvent struct {
	Type    string
	Payload any
	At      time.Time
}

// MemoryRecorder is an in-memory CallRecorder used only by tests; the core
// must not rely on this as a production backing store (spec §6).
type MemoryRecorder struct {
	mu      sync.Mutex
	records map[DialogHandle]*callRecord
	nextID  atomic.Uint64
}

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[DialogHandle]*callRecord)}
}

func (m *MemoryRecorder) RecordCallStarted(callID, from, to string, direction Direction) (DialogHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle := DialogHandle(fmt.Sprintf("h%d", m.nextID.Add(1)))
	m.records[handle] = &callRecord{CallID: callID, From: from, To: to, Direction: direction}
	return handle, nil
}

func (m *MemoryRecorder) RecordStateChange(h DialogHandle, state string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[h]
	if !ok {
		return fmt.Errorf("collab: unknown dialog handle %q", h)
	}
	rec.State = state
	rec.StateAt = at
	return nil
}

func (m *MemoryRecorder) RecordEvent(h DialogHandle, eventType string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[h]
	if !ok {
		return fmt.Errorf("collab: unknown dialog handle %q", h)
	}
	rec.Events = append(rec.Events, recordedEvent{Type: eventType, Payload: payload, At: time.Now()})
	return nil
}

// Snapshot returns a copy of one recorded call, for test assertions.
func (m *MemoryRecorder) Snapshot(h DialogHandle) (callID, from, to, state string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[h]
	if !exists {
		return "", "", "", "", false
	}
	return rec.CallID, rec.From, rec.To, rec.State, true
}

// MemoryPublisher is an in-memory Publisher used only by tests: it
// buffers every published event for later inspection.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	CallID string
	Event  any
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(callID string, event any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{CallID: callID, Event: event})
}

// Events returns a snapshot of every event published so far, in order.
func (p *MemoryPublisher) Events() []any {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]any, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event
	}
	return out
}

// MapConfigBag is a ConfigBag backed by an in-memory map, used by tests
// that don't want to wire viper (spec §6 "the core packages depend only on
// the collab.ConfigBag interface").
type MapConfigBag map[string]string

func (m MapConfigBag) String(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func (m MapConfigBag) Int(key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}
