package messaging

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrMemorySubjectRequired is returned when the destination or source is empty.
	ErrMemorySubjectRequired = errors.New("messaging: memory subject is required")
	// ErrMemoryHandlerRequired is returned when Consume is called with a nil handler.
	ErrMemoryHandlerRequired = errors.New("messaging: memory handler is required")
)

type memorySub struct {
	group string
	ch    chan *memoryMessage
}

// Memory is an in-process bus. Subscribers sharing a queue group split the
// messages of a subject; each distinct group receives every message.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	next   map[string]int
	closed bool
	seq    atomic.Uint64
}

// NewMemory returns an empty bus.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string][]*memorySub),
		next: make(map[string]int),
	}
}

// Publish delivers msg to one subscriber per queue group of destination.
// Publishing to a subject nobody listens on succeeds and drops the message.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrMemorySubjectRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PublishResult{}, io.ErrClosedPipe
	}

	now := time.Now()
	seq := m.seq.Add(1)
	targets := m.pickTargets(destination)
	m.mu.Unlock()

	for _, sub := range targets {
		mm := &memoryMessage{
			id:        strconv.FormatUint(seq, 10),
			subject:   destination,
			body:      append([]byte(nil), msg.Body...),
			key:       msg.Key,
			headers:   append([]Header(nil), msg.Headers...),
			timestamp: now,
		}

		select {
		case sub.ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{
		MessageID: strconv.FormatUint(seq, 10),
		Topic:     destination,
		Timestamp: now,
	}, nil
}

// pickTargets must be called with m.mu held.
func (m *Memory) pickTargets(subject string) []*memorySub {
	byGroup := make(map[string][]*memorySub)
	var order []string
	var targets []*memorySub

	for _, sub := range m.subs[subject] {
		if sub.group == "" {
			targets = append(targets, sub)
			continue
		}
		if _, ok := byGroup[sub.group]; !ok {
			order = append(order, sub.group)
		}
		byGroup[sub.group] = append(byGroup[sub.group], sub)
	}

	for _, group := range order {
		members := byGroup[group]
		key := subject + "\x00" + group
		idx := m.next[key] % len(members)
		m.next[key] = idx + 1
		targets = append(targets, members[idx])
	}

	return targets
}

// Consume blocks and runs handler for every message until ctx is done.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrMemorySubjectRequired
	}
	if handler == nil {
		return ErrMemoryHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := co.groupName()
	concurrency := concurrencyOrDefault(co.concurrency, 1)

	sub := &memorySub{group: group, ch: make(chan *memoryMessage, concurrencyOrDefault(co.maxInFlight, 64))}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	m.subs[source] = append(m.subs[source], sub)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for range concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-sub.ch:
					//nolint:errcheck // the handler owns error reporting
					_ = runHandler(ctx, "memory", handler, msg)
				}
			}
		})
	}

	<-ctx.Done()
	m.removeSub(source, sub)
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) removeSub(source string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[source]
	for i, s := range subs {
		if s == sub {
			m.subs[source] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Close stops accepting publishes and new subscriptions.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

type memoryMessage struct {
	id        string
	subject   string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time
}

func (m *memoryMessage) Body() []byte              { return m.body }
func (m *memoryMessage) Key() []byte               { return m.key }
func (m *memoryMessage) Headers() []Header         { return m.headers }
func (m *memoryMessage) ID() string                { return m.id }
func (m *memoryMessage) Topic() string             { return m.subject }
func (m *memoryMessage) Subject() string           { return m.subject }
func (m *memoryMessage) Timestamp() time.Time      { return m.timestamp }
func (m *memoryMessage) Ack(context.Context) error { return nil }
