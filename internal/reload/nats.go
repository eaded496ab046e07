package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// NATSNotifier publishes reload messages to a NATS subject so other processes
// (a remote preview, an editor plugin) can follow rebuilds.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// DialNATS connects to url and returns a notifier publishing on subject.
func DialNATS(url, subject string, opts ...nats.Option) (*NATSNotifier, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	opts = append([]nats.Option{nats.Name("assetbuilder")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS reload notifier connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// NewNATSNotifier wraps an existing connection.
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

func (n *NATSNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := msg.encode()
	if err != nil {
		return fmt.Errorf("failed to marshal reload message: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish reload message: %w", err)
	}
	return nil
}

// Subject returns the publish subject.
func (n *NATSNotifier) Subject() string { return n.subject }

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
