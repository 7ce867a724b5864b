package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

type natsMessage struct {
	msg        *nats.Msg
	receivedAt time.Time
	settled    atomic.Bool
}

func (m *natsMessage) Body() []byte         { return m.msg.Data }
func (m *natsMessage) Key() []byte          { return nil }
func (m *natsMessage) ID() string           { return "" }
func (m *natsMessage) Topic() string        { return "" }
func (m *natsMessage) Subject() string      { return m.msg.Subject }
func (m *natsMessage) Timestamp() time.Time { return m.receivedAt }

func (m *natsMessage) Headers() []Header {
	var out []Header
	for k, values := range m.msg.Header {
		out = append(out, toHeaders(values, func(v string) (string, []byte) { return k, []byte(v) })...)
	}
	return out
}

func (m *natsMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.settled.Swap(true) {
		return nil
	}
	return ignoreNoReply(m.msg.Ack())
}

// settle acks or naks once after the handler returns. Plain core
// subscriptions have no reply subject and accept both as no-ops.
func (m *natsMessage) settle(handlerErr error) {
	if m.settled.Swap(true) {
		return
	}
	if handlerErr != nil {
		//nolint:errcheck // redelivery is up to the server
		_ = ignoreNoReply(m.msg.Nak())
		return
	}
	//nolint:errcheck // redelivery is up to the server
	_ = ignoreNoReply(m.msg.Ack())
}

func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
