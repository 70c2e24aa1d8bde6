package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorderLifecycle(t *testing.T) {
	rec := NewMemoryRecorder()

	h, err := rec.RecordCallStarted("call-1", "sip:a@x", "sip:b@x", Outbound)
	require.NoError(t, err)

	require.NoError(t, rec.RecordStateChange(h, "CONNECTED", time.Now()))
	require.NoError(t, rec.RecordEvent(h, "media_started", nil))

	callID, from, to, state, ok := rec.Snapshot(h)
	require.True(t, ok)
	assert.Equal(t, "call-1", callID)
	assert.Equal(t, "sip:a@x", from)
	assert.Equal(t, "sip:b@x", to)
	assert.Equal(t, "CONNECTED", state)
}

func TestMemoryRecorderUnknownHandle(t *testing.T) {
	rec := NewMemoryRecorder()
	err := rec.RecordStateChange("bogus", "CONNECTED", time.Now())
	assert.Error(t, err)
}

func TestMemoryPublisherBuffers(t *testing.T) {
	pub := NewMemoryPublisher()
	pub.Publish("call-1", map[string]string{"type": "ringing"})
	pub.Publish("call-1", map[string]string{"type": "connected"})

	events := pub.Events()
	require.Len(t, events, 2)
}

func TestMapConfigBagDefaults(t *testing.T) {
	bag := MapConfigBag{"server_host": "sip.example.test", "server_port": "5061"}
	assert.Equal(t, "sip.example.test", bag.String("server_host", "0.0.0.0"))
	assert.Equal(t, "0.0.0.0", bag.String("missing", "0.0.0.0"))
	assert.Equal(t, 5061, bag.Int("server_port", 5060))
	assert.Equal(t, 5060, bag.Int("missing_port", 5060))
}
