// Package pubsub provides in-memory publish-subscribe fan-out for
// single-machine operation. Channels carry the messages; subscriptions are
// per-topic with a bounded buffer and non-blocking delivery, so one slow
// subscriber never stalls the publisher.
package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Message wraps a published payload with delivery metadata.
type Message[T any] struct {
	ID        string
	Topic     string
	Payload   T
	Timestamp time.Time
}

// PubSub is the fan-out contract the memory status backend builds on.
type PubSub[T any] interface {
	// Publish sends a message to every current subscriber of the topic.
	Publish(ctx context.Context, topic string, payload T) error

	// Subscribe returns a receive channel for the topic plus an
	// unsubscribe function. The channel closes on unsubscribe.
	Subscribe(ctx context.Context, topic string) (<-chan Message[T], func(), error)

	// Close shuts the system down; subsequent publishes fail.
	Close() error
}

type memoryPubSub[T any] struct {
	mu         sync.RWMutex
	topics     map[string]*topic[T]
	bufferSize int
	closed     bool
	nextID     int64
}

type topic[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message[T]
}

// Option configures the in-memory pub/sub.
type Option[T any] func(*memoryPubSub[T])

// WithBufferSize sets the per-subscription channel buffer.
func WithBufferSize[T any](size int) Option[T] {
	return func(p *memoryPubSub[T]) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

// New builds an in-memory pub/sub system.
func New[T any](opts ...Option[T]) PubSub[T] {
	p := &memoryPubSub[T]{
		topics:     make(map[string]*topic[T]),
		bufferSize: 16,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *memoryPubSub[T]) getOrCreateTopic(name string) *topic[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = &topic[T]{subscribers: make(map[string]chan Message[T])}
		p.topics[name] = t
	}
	return t
}

func (p *memoryPubSub[T]) Publish(ctx context.Context, topicName string, payload T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.ErrPlaneClosed
	}
	t, ok := p.topics[topicName]
	id := p.nextID
	p.nextID++
	p.mu.Unlock()
	if !ok {
		return nil // nobody listening yet
	}

	msg := Message[T]{
		ID:        fmt.Sprintf("%d", id),
		Topic:     topicName,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ch := range t.subscribers {
		select {
		case ch <- msg:
		default:
			// Buffer full: drop for this subscriber rather than block.
		}
	}
	return nil
}

func (p *memoryPubSub[T]) Subscribe(ctx context.Context, topicName string) (<-chan Message[T], func(), error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, errors.ErrPlaneClosed
	}
	seq := p.nextID
	p.nextID++
	p.mu.Unlock()

	t := p.getOrCreateTopic(topicName)
	// The counter suffix keeps ids unique when two subscribers land in the
	// same nanosecond.
	id := fmt.Sprintf("sub_%d_%d", time.Now().UnixNano(), seq)
	ch := make(chan Message[T], p.bufferSize)

	t.mu.Lock()
	t.subscribers[id] = ch
	t.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers, id)
			close(ch)
			t.mu.Unlock()
		})
	}

	// Tie the subscription to the caller's context when it can end.
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			unsubscribe()
		}()
	}

	return ch, unsubscribe, nil
}

func (p *memoryPubSub[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.topics {
		t.mu.Lock()
		for id, ch := range t.subscribers {
			delete(t.subscribers, id)
			close(ch)
		}
		t.mu.Unlock()
	}
	return nil
}
