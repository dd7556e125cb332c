package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubesync/nubesync/internal/logging"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	flushErr error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error { return f.flushErr }
func (f *fakeConn) Close()                           { f.closed = true }

func TestNATSNotifier_Notify(t *testing.T) {
	conn := &fakeConn{}
	n := newNATSNotifier(conn, "nubesync.events", logging.Discard())

	err := n.Notify(context.Background(), Event{
		Type:        EventMigrate,
		RunID:       "run-1",
		OutDir:      "/srv/photos",
		Outcome:     "success",
		FromVersion: 1,
		ToVersion:   3,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"nubesync.events.migrate"}, conn.subjects)
	var got Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.ToVersion)
	assert.False(t, got.Timestamp.IsZero())

	n.Close()
	assert.True(t, conn.closed)
}

func TestNATSNotifier_FlushError(t *testing.T) {
	conn := &fakeConn{flushErr: errors.New("timeout")}
	n := newNATSNotifier(conn, "nubesync.events", logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorContains(t, n.Notify(ctx, Event{Type: EventSync}), "failed to flush event")
}

func TestNewNATSNotifier_Unreachable(t *testing.T) {
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "nubesync.events", logging.Discard())
	assert.Error(t, err)
}
