package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
)

func wsURL(httpURL, taskID string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1) + "/api/ws/task/" + taskID
}

// readFrames consumes frames until the server closes the socket, returning
// every decoded status frame and the close code.
func readFrames(t *testing.T, conn *websocket.Conn) ([]wsFrame, int) {
	t.Helper()
	var frames []wsFrame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				return frames, ce.Code
			}
			t.Fatalf("read failed before close frame: %v", err)
		}
		var f wsFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		frames = append(frames, f)
	}
}

func TestGatewayStreamsToTerminal(t *testing.T) {
	ts, _ := newTestServer(t)

	taskID := submit(t, ts, addGraph)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, taskID), nil)
	require.NoError(t, err)
	defer conn.Close()

	frames, closeCode := readFrames(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, closeCode)
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, status.StateSuccess, last.State)
	for _, f := range frames[:len(frames)-1] {
		assert.False(t, f.State.Terminal(), "terminal state before the last frame")
	}
}

func TestGatewayReplaysTerminalFromCache(t *testing.T) {
	ts, _ := newTestServer(t)

	taskID := submit(t, ts, addGraph)
	pollStatus(t, ts, taskID)

	// Connect after completion: the cached terminal state is replayed and
	// the socket closes without a subscription round-trip.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, taskID), nil)
	require.NoError(t, err)
	defer conn.Close()

	frames, closeCode := readFrames(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, closeCode)
	require.Len(t, frames, 1)
	assert.Equal(t, status.StateSuccess, frames[0].State)
}

func TestGatewayRelaysFailure(t *testing.T) {
	ts, _ := newTestServer(t)

	// Aggregate mean over an all-null column fails during execution.
	body := `{
		"nodes": [
			{"id": "lit", "type": "TableLiteral", "params": {
				"columns": [{"name": "x", "type": "float"}],
				"rows": [[null]]
			}},
			{"id": "agg", "type": "Aggregate", "params": {"col": "x", "op": "mean"}}
		],
		"edges": [{"src": "lit", "src_port": "table", "tar": "agg", "tar_port": "table"}]
	}`
	taskID := submit(t, ts, body)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, taskID), nil)
	require.NoError(t, err)
	defer conn.Close()

	frames, closeCode := readFrames(t, conn)
	assert.Equal(t, websocket.CloseNormalClosure, closeCode)
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, status.StateFailure, last.State)
	assert.Equal(t, "ExecutionError", last.Info.Kind)
	assert.Equal(t, "agg", last.Info.NodeID)
}

func TestGatewayDisconnectLeavesTaskAlone(t *testing.T) {
	ts, plane := newTestServer(t)

	taskID := submit(t, ts, addGraph)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, taskID), nil)
	require.NoError(t, err)
	conn.Close() // drop immediately, before the task necessarily finished

	// The task still runs to a SUCCESS terminal state.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := plane.Latest(context.Background(), taskID)
		require.NoError(t, err)
		if ok && msg.State.Terminal() {
			assert.Equal(t, status.StateSuccess, msg.State)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not finish after subscriber disconnect")
}
