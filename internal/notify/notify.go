// Package notify publishes run events to NATS so other services can react
// to finished syncs and migrations.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types.
const (
	EventSync    = "sync"
	EventMigrate = "migrate"
	EventClear   = "clear"
)

// Event describes a finished run.
type Event struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	Remote      string    `json:"remote,omitempty"`
	OutDir      string    `json:"out_dir"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	FromVersion int       `json:"from_version,omitempty"`
	ToVersion   int       `json:"to_version,omitempty"`
	Removed     int       `json:"removed,omitempty"`
	Created     int       `json:"created,omitempty"`
	Downloaded  int       `json:"downloaded,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
func (Noop) Close()                              {}

// publisher is the subset of *nats.Conn the notifier uses.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSNotifier publishes events as JSON on "<subject>.<type>".
type NATSNotifier struct {
	conn    publisher
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("nubesync"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSNotifier(conn, subject, logger), nil
}

func newNATSNotifier(conn publisher, subject string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{conn: conn, subject: subject, logger: logger}
}

// Notify publishes event and waits for the server to acknowledge it or
// ctx to expire.
func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := n.subject + "." + event.Type
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := n.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	n.logger.Debug("Published event", slog.String("subject", subject), slog.String("run_id", event.RunID))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}
