package status

import (
	"context"
	"sync"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/pubsub"
)

// MemoryPlane is the single-process backend: a TTL'd latest-message map
// plus the in-memory pub/sub. A janitor goroutine purges expired entries
// eagerly; reads double-check expiry so a stale entry is never served.
type MemoryPlane struct {
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	ttl     time.Duration
	ps      pubsub.PubSub[Message]
	stop    chan struct{}
	stopped sync.Once
}

type cacheEntry struct {
	msg     Message
	expires time.Time
}

// NewMemoryPlane builds a memory plane with the given cache TTL.
func NewMemoryPlane(ttl time.Duration) *MemoryPlane {
	if ttl <= 0 {
		ttl = time.Hour
	}
	p := &MemoryPlane{
		cache: make(map[string]cacheEntry),
		ttl:   ttl,
		ps:    pubsub.New[Message](),
		stop:  make(chan struct{}),
	}
	go p.janitor()
	return p
}

func (p *MemoryPlane) janitor() {
	interval := p.ttl / 10
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.mu.Lock()
			for id, e := range p.cache {
				if now.After(e.expires) {
					delete(p.cache, id)
				}
			}
			p.mu.Unlock()
		}
	}
}

// Publish caches the message under its task id, then fans it out.
func (p *MemoryPlane) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	p.cache[msg.TaskID] = cacheEntry{msg: msg, expires: time.Now().Add(p.ttl)}
	p.mu.Unlock()
	return p.ps.Publish(ctx, Channel(msg.TaskID), msg)
}

func (p *MemoryPlane) Latest(_ context.Context, taskID string) (Message, bool, error) {
	p.mu.RLock()
	e, ok := p.cache[taskID]
	p.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return Message{}, false, nil
	}
	return e.msg, true, nil
}

func (p *MemoryPlane) Subscribe(ctx context.Context, taskID string) (<-chan Message, func(), error) {
	ch, unsub, err := p.ps.Subscribe(ctx, Channel(taskID))
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Message, cap(ch))
	go func() {
		defer close(out)
		for msg := range ch {
			out <- msg.Payload
		}
	}()
	return out, unsub, nil
}

func (p *MemoryPlane) Close() error {
	p.stopped.Do(func() { close(p.stop) })
	return p.ps.Close()
}
