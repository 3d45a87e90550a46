package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API has no cookie-based auth; cross-origin dashboards are fine.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is the wire shape of one status update sent to a subscriber.
type wsFrame struct {
	State status.State `json:"state"`
	Info  status.Info  `json:"info"`
}

func (s *Server) handleTaskWS(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.logger.Warn("websocket upgrade failed", "taskId", taskID, "error", err)
		return
	}

	sess := &wsSession{
		conn:   conn,
		taskID: taskID,
		cfg:    s.cfg.Gateway,
		plane:  s.plane,
		logger: s.logger.WithField("taskId", taskID),
	}
	sess.run(r.Context())
}

// wsSession streams one task's status updates to one subscriber. It replays
// the cached latest message, then forwards live updates until a terminal
// state, a client disconnect, or a server shutdown.
type wsSession struct {
	conn   *websocket.Conn
	taskID string
	cfg    config.GatewayConfig
	plane  status.Plane
	logger *logger.Logger
}

func (g *wsSession) run(ctx context.Context) {
	defer g.conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Reader goroutine: the client never sends data frames, but reading is
	// what surfaces close frames and keeps pong processing alive.
	_ = g.conn.SetReadDeadline(time.Now().Add(2 * g.cfg.IdleTimeout))
	g.conn.SetPongHandler(func(string) error {
		return g.conn.SetReadDeadline(time.Now().Add(2 * g.cfg.IdleTimeout))
	})
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := g.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Cache first, channel second: a subscriber that connects after the
	// task finished still sees the terminal state.
	latest, ok, err := g.plane.Latest(ctx, g.taskID)
	if err != nil {
		g.logger.Warn("status cache read failed", "error", err)
		return
	}
	if ok {
		if g.send(latest) != nil {
			return
		}
		if latest.State.Terminal() {
			g.closeNormal()
			return
		}
	}

	ch, unsubscribe, err := g.plane.Subscribe(ctx, g.taskID)
	if err != nil {
		g.logger.Warn("status subscribe failed", "error", err)
		return
	}
	defer unsubscribe()

	ping := time.NewTicker(g.cfg.LivenessInterval)
	defer ping.Stop()
	idle := time.NewTimer(g.cfg.IdleTimeout)
	defer idle.Stop()
	lastUpdate := time.Now()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return
			}
			if g.send(msg) != nil {
				return
			}
			if msg.State.Terminal() {
				g.closeNormal()
				return
			}
			lastUpdate = time.Now()

		case <-ping.C:
			deadline := time.Now().Add(g.cfg.WriteTimeout)
			if err := g.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-idle.C:
			if since := time.Since(lastUpdate); since < g.cfg.IdleTimeout {
				idle.Reset(g.cfg.IdleTimeout - since)
				continue
			}
			// A quiet channel does not end the session, but the cache may
			// hold a terminal state the channel never delivered to us.
			latest, ok, err := g.plane.Latest(ctx, g.taskID)
			if err == nil && ok && latest.State.Terminal() {
				if g.send(latest) == nil {
					g.closeNormal()
				}
				return
			}
			lastUpdate = time.Now()
			idle.Reset(g.cfg.IdleTimeout)

		case <-disconnected:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (g *wsSession) send(msg status.Message) error {
	_ = g.conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	err := g.conn.WriteJSON(wsFrame{State: msg.State, Info: msg.Info})
	if err != nil {
		g.logger.Debug("subscriber write failed", "error", err)
	}
	return err
}

func (g *wsSession) closeNormal() {
	deadline := time.Now().Add(g.cfg.WriteTimeout)
	data := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = g.conn.WriteControl(websocket.CloseMessage, data, deadline)
}
