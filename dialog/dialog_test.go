package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipcore/sipua/sip"
)

func uri(user, host string) sip.Uri { return sip.Uri{User: user, Host: host} }

func TestCreateRejectsDuplicateCallID(t *testing.T) {
	table := NewTable()
	_, err := table.Create("call-1", uri("alice", "a.test"), uri("bob", "b.test"), "tagA", Outbound)
	require.NoError(t, err)

	_, err = table.Create("call-1", uri("alice", "a.test"), uri("bob", "b.test"), "tagB", Outbound)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestLookupUnknownCallID(t *testing.T) {
	table := NewTable()
	_, err := table.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownCallID)
}

func TestStateMonotonicityTerminalNeverReopens(t *testing.T) {
	table := NewTable()
	d, err := table.Create("call-2", uri("alice", "a.test"), uri("bob", "b.test"), "tagA", Outbound)
	require.NoError(t, err)

	_, err = table.Transition("call-2", Trying)
	require.NoError(t, err)
	_, err = table.Transition("call-2", Connected)
	require.NoError(t, err)
	assert.False(t, d.ConnectedAt.IsZero())

	_, err = table.Transition("call-2", Terminated)
	require.NoError(t, err)
	assert.False(t, d.TerminatedAt.IsZero())

	_, err = table.Transition("call-2", Ringing)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, Terminated, d.State())
}

func TestContextCancelledOnTerminal(t *testing.T) {
	table := NewTable()
	d, err := table.Create("call-3", uri("alice", "a.test"), uri("bob", "b.test"), "tagA", Inbound)
	require.NoError(t, err)

	select {
	case <-d.Context().Done():
		t.Fatal("context should not be cancelled before termination")
	default:
	}

	_, err = table.Transition("call-3", Failed)
	require.NoError(t, err)

	select {
	case <-d.Context().Done():
	default:
		t.Fatal("context should be cancelled once dialog fails")
	}
}

func TestRecentEventsCapped(t *testing.T) {
	d := newDialog("call-4", uri("a", "a.test"), uri("b", "b.test"), "tag", Outbound)
	for i := 0; i < recentEventsCap+5; i++ {
		d.RecordEvent("ping")
	}
	assert.Len(t, d.RecentEvents(), recentEventsCap)
}

func TestSnapshotReflectsActiveDialogs(t *testing.T) {
	table := NewTable()
	_, err := table.Create("call-5", uri("a", "a.test"), uri("b", "b.test"), "tag", Outbound)
	require.NoError(t, err)

	snap := table.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "call-5", snap[0].CallID)
	assert.Equal(t, Initiating, snap[0].State)

	table.Remove("call-5")
	assert.Empty(t, table.Snapshot())
}
