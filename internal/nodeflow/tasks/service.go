// Package tasks is the async job layer: a bounded submission queue, a
// worker pool that runs one graph per worker through the interpreter, a
// task registry for cancellation, and status publication for every
// lifecycle transition.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/graph"
	"github.com/nodeflow/nodeflow/internal/nodeflow/interpreter"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/errors"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

// task is one submission's registry entry.
type task struct {
	id        string
	graph     *graph.Graph
	hash      string
	submitted time.Time

	mu       sync.Mutex
	terminal bool
	cancel   context.CancelFunc
}

// Service accepts graph submissions, executes them on a worker pool and
// publishes every status transition to the plane. Exactly one terminal
// state is published per task.
type Service struct {
	cfg    *config.Config
	interp *interpreter.Interpreter
	plane  status.Plane
	ids    *IDGenerator
	logger *logger.Logger

	queue chan *task

	mu    sync.RWMutex
	tasks map[string]*task

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewService wires a task service over a registry and a status plane.
func NewService(cfg *config.Config, registry *node.Registry, plane status.Plane) *Service {
	runCtx, runCancel := context.WithCancel(context.Background())
	return &Service{
		cfg:       cfg,
		interp:    interpreter.New(registry, cfg),
		plane:     plane,
		ids:       NewIDGenerator(),
		logger:    logger.New().WithField("component", "tasks"),
		queue:     make(chan *task, cfg.Executor.QueueSize),
		tasks:     make(map[string]*task),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

// Start launches the worker pool. Idempotent.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		workers := s.cfg.Executor.Workers
		if workers < 1 {
			workers = 1
		}
		s.logger.Info("starting workers", "count", workers, "queue", cap(s.queue))
		for i := 0; i < workers; i++ {
			s.wg.Add(1)
			go s.worker(i)
		}
	})
}

// Stop cancels all running tasks and waits for the workers to drain, or for
// ctx to give up.
func (s *Service) Stop(ctx context.Context) error {
	s.runCancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues a graph for execution and returns its fresh task id. The
// PENDING status is cached before Submit returns, so an immediate status
// poll never misses the task. A full queue is a retryable ResourceError.
func (s *Service) Submit(ctx context.Context, g *graph.Graph) (string, error) {
	hash, err := g.Hash()
	if err != nil {
		return "", err
	}

	t := &task{
		id:        s.ids.Next(),
		graph:     g,
		hash:      hash,
		submitted: time.Now(),
	}

	if err := s.plane.Publish(ctx, status.Message{
		TaskID: t.id,
		State:  status.StatePending,
	}); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tasks[t.id] = t
	s.mu.Unlock()

	select {
	case s.queue <- t:
	default:
		s.mu.Lock()
		delete(s.tasks, t.id)
		s.mu.Unlock()
		return "", errors.NewResourceError("tasks.submit", errors.ErrQueueFull)
	}

	s.logger.Info("task submitted", "taskId", t.id, "graphHash", hash[:12], "project", g.Meta.ProjectID)
	return t.id, nil
}

// Status returns the latest known status for a task.
func (s *Service) Status(ctx context.Context, taskID string) (status.Message, error) {
	msg, ok, err := s.plane.Latest(ctx, taskID)
	if err != nil {
		return status.Message{}, err
	}
	if ok {
		return msg, nil
	}
	s.mu.RLock()
	_, known := s.tasks[taskID]
	s.mu.RUnlock()
	if !known {
		return status.Message{}, errors.ErrTaskNotFound
	}
	// Known but evicted from the cache: report the bare pending state.
	return status.Message{TaskID: taskID, State: status.StatePending}, nil
}

// Cancel requests cancellation of a running or queued task. The worker
// observes it at the next node boundary.
func (s *Service) Cancel(taskID string) error {
	s.mu.RLock()
	t, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return errors.ErrTaskNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal {
		return errors.ErrTaskNotRunning
	}
	if t.cancel != nil {
		t.cancel()
		return nil
	}
	// Still queued: mark it so the worker drops it at pickup.
	t.terminal = true
	go s.publishTerminal(t, status.StateFailure, status.Info{
		Kind:    "cancelled",
		Message: "task cancelled before execution started",
	})
	return nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	log := s.logger.WithField("worker", id)
	for {
		select {
		case <-s.runCtx.Done():
			return
		case t := <-s.queue:
			s.execute(log, t)
		}
	}
}

func (s *Service) execute(log *logger.Logger, t *task) {
	t.mu.Lock()
	if t.terminal { // cancelled while queued
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	log.Info("task started", "taskId", t.id)

	reporter := func(p interpreter.Progress) {
		err := s.plane.Publish(ctx, status.Message{
			TaskID: t.id,
			State:  status.StateRunning,
			Info:   status.Info{Stage: p.Stage, NodeID: p.NodeID, Percent: p.Percent},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("progress publish failed", "taskId", t.id, "error", err)
		}
	}

	result, err := s.interp.Run(ctx, t.graph, reporter)
	if err != nil {
		s.publishTerminal(t, status.StateFailure, failureInfo(err))
		log.Info("task failed", "taskId", t.id, "kind", failureInfo(err).Kind)
		return
	}

	s.publishTerminal(t, status.StateSuccess, status.Info{
		Stage:   interpreter.StageExecution,
		Percent: 100,
		Outputs: outputViews(log, result),
	})
	log.Info("task succeeded", "taskId", t.id)
}

// publishTerminal marks the task finished and publishes its single terminal
// message; the plane write uses a fresh context so cancellation of the task
// cannot suppress its own terminal state.
func (s *Service) publishTerminal(t *task, st status.State, info status.Info) {
	t.mu.Lock()
	t.terminal = true
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.plane.Publish(ctx, status.Message{TaskID: t.id, State: st, Info: info}); err != nil {
		s.logger.Error("terminal publish failed", "taskId", t.id, "error", err)
	}
}

// failureInfo maps a run error onto the terminal FAILURE payload.
func failureInfo(err error) status.Info {
	if errors.Is(err, context.Canceled) {
		return status.Info{Kind: "cancelled", Message: "task cancelled"}
	}
	return status.Info{
		Stage:   string(errors.ErrorStage(err)),
		NodeID:  errors.NodeID(err),
		Kind:    errors.Kind(err),
		Message: err.Error(),
	}
}

// outputViews serializes every top-level output for the SUCCESS payload.
func outputViews(log *logger.Logger, result *interpreter.Result) map[string]any {
	out := make(map[string]any, len(result.Outputs))
	for key, d := range result.Outputs {
		view, err := d.View()
		if err != nil {
			log.Warn("output not serializable", "node", key.Node, "port", key.Port, "error", err)
			continue
		}
		out[fmt.Sprintf("%s.%s", key.Node, key.Port)] = view
	}
	return out
}
