// Package messaging provides delivery channels that mirror simulator
// output to external surfaces. The engine persists every message to the
// transcript store itself; channels are best-effort mirrors and must
// never block or fail a turn.
package messaging

import (
	"context"
	"log/slog"

	"github.com/jothamO/prism-admin/internal/models"
)

// Channel delivers bot messages produced during a turn to an external
// surface. Delivery failures are reported but callers treat them as
// advisory.
type Channel interface {
	// Deliver sends one bot message for the given session.
	Deliver(ctx context.Context, sessionID string, msg models.Message) error
	// Name identifies the channel in logs.
	Name() string
}

// LogChannel is the default channel: it records deliveries to the
// structured log and nothing else. Useful in tests and when no mirror
// destination is configured.
type LogChannel struct{}

// NewLogChannel creates a LogChannel.
func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

// Name returns the channel identifier.
func (c *LogChannel) Name() string { return "log" }

// Deliver logs the outgoing message.
func (c *LogChannel) Deliver(ctx context.Context, sessionID string, msg models.Message) error {
	slog.Debug("LogChannel.Deliver: message emitted", "sessionID", sessionID, "messageID", msg.ID, "kind", msg.Kind)
	return nil
}
