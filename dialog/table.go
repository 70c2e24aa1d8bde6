package dialog

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sipcore/sipua/sip"
)

var dialogsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sip_dialogs_active",
	Help: "Dialogs currently tracked by a dialog table, any non-terminal state.",
})

// Table is the call_id → Dialog map plus the single mutex that serializes
// every state-machine step and response composition (spec §5 "a single
// mutex held only for the duration of state-machine step ... never across
// I/O"). Callbacks must be invoked by the caller outside the lock.
type Table struct {
	mu      sync.Mutex
	dialogs map[string]*Dialog
}

// NewTable returns an empty dialog table.
func NewTable() *Table {
	return &Table{dialogs: make(map[string]*Dialog)}
}

// Create inserts a new dialog for callID in Initiating state. It returns
// ErrIllegalTransition if callID already names a dialog (spec §3 "call_id
// uniquely identifies a dialog in a UA").
func (t *Table) Create(callID string, local, remote sip.Uri, localTag string, dir Direction) (*Dialog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.dialogs[callID]; exists {
		return nil, ErrIllegalTransition
	}
	d := newDialog(callID, local, remote, localTag, dir)
	t.dialogs[callID] = d
	dialogsActive.Inc()
	return d, nil
}

// Lookup returns the dialog for callID, or ErrUnknownCallID.
func (t *Table) Lookup(callID string) (*Dialog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.dialogs[callID]
	if !ok {
		return nil, ErrUnknownCallID
	}
	return d, nil
}

// Transition moves the named dialog to next under the table lock, returning
// the dialog for event emission by the caller (outside the lock).
func (t *Table) Transition(callID string, next State) (*Dialog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.dialogs[callID]
	if !ok {
		return nil, ErrUnknownCallID
	}
	if err := d.setState(next); err != nil {
		return nil, err
	}
	return d, nil
}

// Remove deletes a terminal dialog from the table (spec §4.4.2 "transition
// to TERMINATED, remove the dialog").
func (t *Table) Remove(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.dialogs[callID]; ok {
		delete(t.dialogs, callID)
		dialogsActive.Dec()
	}
}

// Summary is the read-only projection ActiveCalls() exposes (SPEC_FULL
// §4.5 supplement).
type Summary struct {
	CallID    string
	State     State
	RemoteURI string
	Direction Direction
	CreatedAt int64
}

// Snapshot lists every tracked dialog as a Summary, call_id/state/peer-uri
// (spec's ActiveCalls supplement).
func (t *Table) Snapshot() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Summary, 0, len(t.dialogs))
	for _, d := range t.dialogs {
		out = append(out, Summary{
			CallID:    d.CallID,
			State:     d.State(),
			RemoteURI: d.RemoteURI.String(),
			Direction: d.Direction,
			CreatedAt: d.CreatedAt.Unix(),
		})
	}
	return out
}
