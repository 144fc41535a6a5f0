package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jenkins-monitor/src/logger"
)

// subscriberBuffer is the channel capacity of each in-memory subscriber.
const subscriberBuffer = 100

type subscriber struct {
	ch   chan Message
	done <-chan struct{}
}

// InMemoryBroker delivers messages to subscribers in the same process.
// It is used by tests and when no Redpanda brokers are configured.
type InMemoryBroker struct {
	mu      sync.Mutex
	subs    map[string][]*subscriber
	offsets map[string]int64
	closed  bool
	log     logger.Logger
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs:    make(map[string][]*subscriber),
		offsets: make(map[string]int64),
		log:     logger.NewSilentLogger(),
	}
}

// SetLogger routes delivery diagnostics to log.
func (b *InMemoryBroker) SetLogger(log logger.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = log
}

// Publish delivers value to every current subscriber of topic. A subscriber
// whose buffer is full drops the message.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	for _, sub := range b.subs[topic] {
		select {
		case <-sub.done:
			continue
		default:
		}
		select {
		case sub.ch <- msg:
		default:
			b.log.Warn("dropping message at offset %d on %s: subscriber buffer full", msg.Offset, topic)
		}
	}

	b.log.Debug("published to %s key=%q (%d bytes)", topic, key, len(value))
	return nil
}

// Subscribe registers a new subscriber on topic. groupID is ignored.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscriber{
		ch:   make(chan Message, subscriberBuffer),
		done: ctx.Done(),
	}
	b.subs[topic] = append(b.subs[topic], sub)

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.remove(topic, sub)
		}()
	}

	return sub.ch, nil
}

// remove detaches sub and closes its channel if the broker has not already.
func (b *InMemoryBroker) remove(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == sub {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Close closes every subscriber channel. Later calls are no-ops.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.subs {
		for _, s := range subs {
			close(s.ch)
		}
		delete(b.subs, topic)
	}
	return nil
}

// String describes the broker for startup logs.
func (b *InMemoryBroker) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return fmt.Sprintf("in-memory broker (%d subscribers)", n)
}
