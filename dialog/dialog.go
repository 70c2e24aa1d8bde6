// Package dialog implements the call-leg state machine that correlates SIP
// requests and responses by Call-ID, advances the per-call state (spec
// §4.4), and composes response headers from a matched request. There is no
// RFC 3261 Transaction Layer here: transactions collapse directly into
// dialogs, and retransmission is best-effort at most (spec §9).
package dialog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sipcore/sipua/sdp"
	"github.com/sipcore/sipua/sip"
)

// State is a dialog's position in the call-leg lifecycle.
type State int32

const (
	Initiating State = iota
	Trying
	Ringing
	Connected
	Terminated
	Failed
)

func (s State) String() string {
	switch s {
	case Initiating:
		return "INITIATING"
	case Trying:
		return "TRYING"
	case Ringing:
		return "RINGING"
	case Connected:
		return "CONNECTED"
	case Terminated:
		return "TERMINATED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Direction records which side originated the INVITE. Purely observational:
// it drives no transition (SPEC_FULL §4.4 supplement).
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// ErrUnknownCallID is returned when an operation names a Call-ID with no
// matching dialog.
var ErrUnknownCallID = errors.New("dialog: unknown call-id")

// ErrIllegalTransition is returned when a requested state change is not
// reachable from the dialog's current state (spec §3 "after TERMINATED/FAILED
// it is not reopened").
var ErrIllegalTransition = errors.New("dialog: illegal state transition")

// event is one entry of a dialog's bounded recent-activity ring
// (SPEC_FULL §4.4 supplement). It is memory-only; nothing in the core
// forwards it to a collab.CallRecorder.
type event struct {
	Type string
	At   time.Time
}

const recentEventsCap = 16

// Dialog is one call-leg: its identity, negotiated media and current state.
// All field access that can race with the owning Table's receive-context
// mutations must go through the Table's locked methods; the Dialog struct
// itself has no internal lock.
type Dialog struct {
	CallID     string
	LocalURI   sip.Uri
	RemoteURI  sip.Uri
	LocalTag   string
	RemoteTag  string
	Direction  Direction

	cseqOut atomic.Uint32
	state   atomic.Int32

	CreatedAt    time.Time
	ConnectedAt  time.Time
	TerminatedAt time.Time

	LocalSDP  []byte
	RemoteSDP []byte

	LocalRTPAddr  string
	LocalRTPPort  int
	RemoteRTPAddr string
	RemoteRTPPort int

	InviteRequest *sip.Request

	ctx    context.Context
	cancel context.CancelFunc

	eventsMu sync.Mutex
	events   []event
}

// newDialog constructs a dialog in Initiating state with a fresh cancellable
// context (spec §5 "each long-running ... started with context.Context").
func newDialog(callID string, local, remote sip.Uri, localTag string, dir Direction) *Dialog {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dialog{
		CallID:    callID,
		LocalURI:  local,
		RemoteURI: remote,
		LocalTag:  localTag,
		Direction: dir,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	d.state.Store(int32(Initiating))
	return d
}

// State returns the dialog's current state.
func (d *Dialog) State() State { return State(d.state.Load()) }

// Context is cancelled the moment the dialog reaches Terminated or Failed.
func (d *Dialog) Context() context.Context { return d.ctx }

// recordCSeq stores the last CSeq number seen on this dialog. The CSeq
// counter itself is per-UA and owned by the caller (uac/uas).
func (d *Dialog) recordCSeq(n uint32) { d.cseqOut.Store(n) }

func (d *Dialog) lastCSeq() uint32 { return d.cseqOut.Load() }

// RecordEvent appends to the bounded recent-activity ring, evicting the
// oldest entry once recentEventsCap is reached.
func (d *Dialog) RecordEvent(eventType string) {
	d.eventsMu.Lock()
	defer d.eventsMu.Unlock()
	d.events = append(d.events, event{Type: eventType, At: time.Now()})
	if len(d.events) > recentEventsCap {
		d.events = d.events[len(d.events)-recentEventsCap:]
	}
}

// RecentEvent is the exported, read-only shape of a ring entry.
type RecentEvent struct {
	Type string
	At   time.Time
}

// RecentEvents returns a snapshot of the dialog's recent event ring, oldest
// first.
func (d *Dialog) RecentEvents() []RecentEvent {
	d.eventsMu.Lock()
	defer d.eventsMu.Unlock()
	out := make([]RecentEvent, len(d.events))
	for i, e := range d.events {
		out[i] = RecentEvent{Type: e.Type, At: e.At}
	}
	return out
}

// terminal lists the states a dialog never leaves once reached (spec
// §4.4.1, §4.4.2): a dialog that has reached Terminated or Failed never
// reopens.
var terminal = map[State]bool{Terminated: true, Failed: true}

// setState moves the dialog to next, rejecting any transition out of a
// terminal state and any move that is not forward in the order
// Initiating → Trying → Ringing → Connected → Terminated/Failed (states may
// be skipped). Callers hold the owning Table's lock.
func (d *Dialog) setState(next State) error {
	cur := d.State()
	if terminal[cur] || next <= cur {
		return ErrIllegalTransition
	}
	d.state.Store(int32(next))
	d.RecordEvent("state:" + next.String())

	switch next {
	case Connected:
		if d.ConnectedAt.IsZero() {
			d.ConnectedAt = time.Now()
		}
	case Terminated, Failed:
		if d.TerminatedAt.IsZero() {
			d.TerminatedAt = time.Now()
		}
		d.cancel()
	}
	return nil
}

// ApplyOffer stores a local SDP offer and the RTP endpoint it advertises.
func (d *Dialog) ApplyOffer(body []byte, rtpAddr string, rtpPort int) {
	d.LocalSDP = body
	d.LocalRTPAddr = rtpAddr
	d.LocalRTPPort = rtpPort
}

// ApplyAnswer stores a remote SDP answer, extracting its RTP endpoint via
// the sdp package (spec §4.4.1 "parse remote RTP endpoint").
func (d *Dialog) ApplyAnswer(body []byte) error {
	ip, err := sdp.ParseConnection(body)
	if err != nil {
		return err
	}
	port, _, err := sdp.ParseMedia(body)
	if err != nil {
		return err
	}
	d.RemoteSDP = body
	d.RemoteRTPAddr = ip
	d.RemoteRTPPort = port
	return nil
}
