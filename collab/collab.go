// Package collab defines the narrow interfaces the core depends on for
// persistence, real-time fan-out and configuration (spec §6). The core
// must not assume a backing store: production wiring supplies its own
// implementation; this package also ships in-memory reference
// implementations used only by tests.
package collab

import "time"

// Direction mirrors dialog.Direction without importing the dialog package,
// keeping collab free of a dependency on the call-state engine it serves.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// DialogHandle opaquely identifies a persisted call record to its backing
// store; callers must treat it as opaque.
type DialogHandle string

// CallRecorder is the persistence sink: a narrow three-method interface the
// dialog/uac/uas layers call into, never a database directly.
type CallRecorder interface {
	RecordCallStarted(callID, from, to string, direction Direction) (DialogHandle, error)
	RecordStateChange(h DialogHandle, state string, at time.Time) error
	RecordEvent(h DialogHandle, eventType string, payload any) error
}

// Publisher is the real-time fan-out sink: fire-and-forget, errors logged
// only by the caller.
type Publisher interface {
	Publish(callID string, event any)
}

// ConfigBag is a flat value bag with the recognized options of spec §6:
// server_host, server_port, username, password, domain, local_ip,
// local_port, realm, cors_origins.
type ConfigBag interface {
	String(key, def string) string
	Int(key string, def int) int
}
