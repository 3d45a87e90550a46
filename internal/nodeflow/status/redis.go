package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/errors"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

// RedisPlane is the multi-process backend: the latest message lives in a
// hash at task_status:{id} under the latest_message field with a TTL, and
// every update is additionally published on task:{id}. Redis expires the
// cache entries itself.
type RedisPlane struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

const latestField = "latest_message"

// NewRedisPlane connects to Redis and verifies the connection.
func NewRedisPlane(cfg config.RedisConfig, ttl time.Duration) (*RedisPlane, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewResourceError("status.connect", err)
	}
	return &RedisPlane{
		client: client,
		ttl:    ttl,
		logger: logger.New().WithField("component", "status-redis"),
	}, nil
}

func (p *RedisPlane) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.NewResourceError("status.encode", err)
	}

	key := CacheKey(msg.TaskID)
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, key, latestField, payload)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewResourceError("status.cache", err)
	}

	if err := p.client.Publish(ctx, Channel(msg.TaskID), payload).Err(); err != nil {
		return errors.NewResourceError("status.publish", err)
	}
	return nil
}

func (p *RedisPlane) Latest(ctx context.Context, taskID string) (Message, bool, error) {
	raw, err := p.client.HGet(ctx, CacheKey(taskID), latestField).Result()
	if err == redis.Nil {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, errors.NewResourceError("status.read", err)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, false, errors.NewResourceError("status.decode", err)
	}
	return msg, true, nil
}

func (p *RedisPlane) Subscribe(ctx context.Context, taskID string) (<-chan Message, func(), error) {
	sub := p.client.Subscribe(ctx, Channel(taskID))
	// Force the subscription onto the wire before we report readiness, so
	// the cache-then-subscribe sequencing holds.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, errors.NewResourceError("status.subscribe", err)
	}

	out := make(chan Message, 16)
	go func() {
		defer close(out)
		for m := range sub.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				p.logger.Warn("dropping undecodable status message", "channel", m.Channel, "error", err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() { _ = sub.Close() }
	return out, unsubscribe, nil
}

func (p *RedisPlane) Close() error {
	return p.client.Close()
}
