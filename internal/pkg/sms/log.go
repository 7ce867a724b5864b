package sms

import (
	"context"
	"log/slog"
)

// Log writes messages to slog instead of sending them.
type Log struct{}

// NewLog returns the log driver.
func NewLog() *Log {
	return &Log{}
}

// Send logs the message. The body is logged under "sms_body" so it can be masked.
func (*Log) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "sms: message sent to log driver", "phone", msg.To, "sms_body", msg.Body)
	return nil
}

// Close is a no-op.
func (*Log) Close() error {
	return nil
}
