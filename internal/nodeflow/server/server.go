// Package server exposes the task service over HTTP: graph submission,
// status polling, per-type hints and the WebSocket status gateway.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nodeflow/nodeflow/internal/nodeflow/graph"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/internal/nodeflow/tasks"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/errors"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

// maxGraphBytes bounds the request body of a graph submission.
const maxGraphBytes = 4 << 20

// Server routes the HTTP API and owns the underlying http.Server.
type Server struct {
	cfg      *config.Config
	service  *tasks.Service
	plane    status.Plane
	registry *node.Registry
	logger   *logger.Logger
	router   *mux.Router
	httpSrv  *http.Server
}

// New wires the routes. The caller starts and stops the task service and
// status plane; the server only borrows them.
func New(cfg *config.Config, service *tasks.Service, plane status.Plane, registry *node.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		plane:    plane,
		registry: registry,
		logger:   logger.WithField("component", "server"),
	}

	r := mux.NewRouter()
	r.Use(s.requestLogging)
	r.HandleFunc("/api/run_nodes", s.handleRunNodes).Methods(http.MethodPost)
	r.HandleFunc("/api/task/{task_id}/status", s.handleTaskStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/task/{task_id}/cancel", s.handleTaskCancel).Methods(http.MethodPost)
	r.HandleFunc("/api/ws/task/{task_id}", s.handleTaskWS).Methods(http.MethodGet)
	r.HandleFunc("/api/hint", s.handleHint).Methods(http.MethodPost)
	r.HandleFunc("/api/examples", s.handleExamples).Methods(http.MethodGet)
	r.HandleFunc("/api/node_types", s.handleNodeTypes).Methods(http.MethodGet)
	s.router = r

	return s
}

// Handler returns the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.GetServerAddress(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.logger.Info("http server listening", "address", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleRunNodes(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxGraphBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err))
		return
	}

	g, err := graph.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	taskID, err := s.service.Submit(r.Context(), g)
	if err != nil {
		if errors.Is(err, errors.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	msg, err := s.service.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, errors.ErrTaskNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	if err := s.service.Cancel(taskID); err != nil {
		switch {
		case errors.Is(err, errors.ErrTaskNotFound):
			s.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, errors.ErrTaskNotRunning):
			s.writeError(w, http.StatusConflict, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

// hintRequest carries a node type with partial parameters and whatever input
// schemas the caller already knows. Each input slot names either a table
// (as a column list) or a scalar tag.
type hintRequest struct {
	Type   string               `json:"type"`
	Params node.Params          `json:"params"`
	Inputs map[string]hintInput `json:"inputs"`
}

type hintInput struct {
	Table  *schema.TableSchema `json:"table,omitempty"`
	Scalar schema.PrimitiveTag `json:"scalar,omitempty"`
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req hintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding hint request: %w", err))
		return
	}
	if req.Type == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("hint request needs a node type"))
		return
	}

	in := make(map[string]*schema.Schema, len(req.Inputs))
	for port, hi := range req.Inputs {
		switch {
		case hi.Table != nil:
			in[port] = schema.OfTable(hi.Table)
		case hi.Scalar != "":
			in[port] = schema.Scalar(hi.Scalar)
		}
	}

	hint := s.registry.GetHint(req.Type, in, req.Params)
	s.writeJSON(w, http.StatusOK, map[string]any{"hint": hint})
}

func (s *Server) handleNodeTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"types": s.registry.Types()})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"examples": Examples()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "error", err)
	}
	s.writeJSON(w, code, map[string]string{"detail": err.Error(), "kind": errors.Kind(err)})
}
