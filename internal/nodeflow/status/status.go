// Package status is the per-task status plane: a latest-message cache with
// a bounded TTL plus a pub/sub channel per task. Writes are sequenced cache
// first, publish second, so a reader that loads the cache before
// subscribing never misses the terminal state.
package status

import (
	"context"
	"fmt"

	"github.com/nodeflow/nodeflow/pkg/config"
)

// State is a task's lifecycle state.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Terminal reports whether no further updates can follow this state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Info is the progress or failure record attached to a status update.
type Info struct {
	Stage   string  `json:"stage,omitempty"`
	NodeID  string  `json:"node_id,omitempty"`
	Percent float64 `json:"percent"`

	// Failure payload, set on FAILURE only.
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`

	// Outputs maps "node.port" to the serialized view of the produced
	// value, set on SUCCESS only.
	Outputs map[string]any `json:"outputs,omitempty"`
}

// Message is one status update as published to the plane.
type Message struct {
	TaskID string `json:"task_id"`
	State  State  `json:"state"`
	Info   Info   `json:"info"`
}

// Plane is the cache + pub/sub pair every status update flows through.
// Publish writes the cache entry before fanning out, refreshing the TTL.
type Plane interface {
	Publish(ctx context.Context, msg Message) error

	// Latest returns the cached most-recent message for a task, with a
	// second result reporting presence.
	Latest(ctx context.Context, taskID string) (Message, bool, error)

	// Subscribe delivers every subsequent update for a task. The returned
	// function releases the subscription.
	Subscribe(ctx context.Context, taskID string) (<-chan Message, func(), error)

	Close() error
}

// CacheKey is the cache key layout shared by all backends.
func CacheKey(taskID string) string {
	return "task_status:" + taskID
}

// Channel is the pub/sub channel layout shared by all backends.
func Channel(taskID string) string {
	return "task:" + taskID
}

// NewPlane builds the backend named by the configuration.
func NewPlane(cfg *config.Config) (Plane, error) {
	ttl := cfg.Status.TTL
	switch cfg.Status.Backend {
	case "memory", "":
		return NewMemoryPlane(ttl), nil
	case "redis":
		return NewRedisPlane(cfg.Status.Redis, ttl)
	default:
		return nil, fmt.Errorf("unknown status backend %q", cfg.Status.Backend)
	}
}
