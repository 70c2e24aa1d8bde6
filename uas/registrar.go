package uas

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sipcore/sipua/sip"
)

var registrationsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sip_registrations_active",
	Help: "Registrar entries not yet past their expiry, as of the last lookup sweep.",
})

// Registration is one registrar table entry (spec §3): a username's current
// Contact, the source address the REGISTER arrived from, and when it
// expires.
type Registration struct {
	Username     string
	Contact      sip.Uri
	SourceAddr   string
	ExpiresAt    time.Time
	RegisteredAt time.Time
}

// Registrar is the server-side username → Registration table. Eviction is
// lazy: an expired entry is only removed the next time it is looked up or
// the table is swept (spec §3 "lazy eviction on next query is acceptable").
type Registrar struct {
	mu      sync.Mutex
	entries map[string]*Registration
}

// NewRegistrar returns an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{entries: make(map[string]*Registration)}
}

// Upsert adds or overwrites the entry for username (spec §3 "overwritten on
// re-REGISTER from the same username").
func (r *Registrar) Upsert(username string, contact sip.Uri, sourceAddr string, expiresSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if _, existed := r.entries[username]; !existed {
		registrationsActive.Inc()
	}
	r.entries[username] = &Registration{
		Username:     username,
		Contact:      contact,
		SourceAddr:   sourceAddr,
		ExpiresAt:    now.Add(time.Duration(expiresSeconds) * time.Second),
		RegisteredAt: now,
	}
}

// Lookup returns the live registration for username, evicting it first if
// its expiry has already passed.
func (r *Registrar) Lookup(username string) (*Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[username]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(r.entries, username)
		registrationsActive.Dec()
		return nil, false
	}
	return entry, true
}

// Sweep removes every entry whose expiry has passed, returning the count
// removed.
func (r *Registrar) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for user, entry := range r.entries {
		if now.After(entry.ExpiresAt) {
			delete(r.entries, user)
			registrationsActive.Dec()
			removed++
		}
	}
	return removed
}
