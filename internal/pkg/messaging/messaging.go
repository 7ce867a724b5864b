package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Values accepted by the messaging.driver config key.
const (
	DriverKafka  = "kafka"
	DriverNATS   = "nats"
	DriverMemory = "memory" // in process only, for local runs and tests
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

type FactoryOptions struct {
	Kafka KafkaConfig
	NATS  NATSConfig
}

func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher sends messages to a destination (Kafka topic or NATS subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks on source and feeds every message to handler until ctx is
// done or the broker fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With WithAutoAck(true) a nil error acks the
// message and a non-nil error leaves it for redelivery where the broker
// supports that.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is what a module publishes.
type OutgoingMessage struct {
	Body []byte
	// Key selects the Kafka partition. Messages with the same key keep their order.
	Key     []byte
	Headers []Header
}

// Header is a message header. Keys may repeat.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult describes an accepted message.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header

	ID() string
	Topic() string
	Subject() string
	Timestamp() time.Time

	// Ack marks the message as processed.
	Ack(ctx context.Context) error
}

// HeaderValue returns the first value of header key, or "".
func HeaderValue(msg Message, key string) string {
	for _, h := range msg.Headers() {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func toHeaders[T any](in []T, kv func(T) (string, []byte)) []Header {
	if len(in) == 0 {
		return nil
	}
	out := make([]Header, 0, len(in))
	for _, h := range in {
		k, v := kv(h)
		out = append(out, Header{Key: k, Value: v})
	}
	return out
}
