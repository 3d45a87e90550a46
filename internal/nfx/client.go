package nfx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/pkg/config"
)

// apiClient talks to one nodeflow server over its HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(node *config.Node) *apiClient {
	return &apiClient{
		base: "http://" + node.Address,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) submit(graphJSON []byte) (string, error) {
	resp, err := c.http.Post(c.base+"/api/run_nodes", "application/json", bytes.NewReader(graphJSON))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding submit response: %w", err)
	}
	return out.TaskID, nil
}

func (c *apiClient) taskStatus(taskID string) (status.Message, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/api/task/%s/status", c.base, taskID))
	if err != nil {
		return status.Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status.Message{}, apiError(resp)
	}
	var msg status.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return status.Message{}, fmt.Errorf("decoding status response: %w", err)
	}
	return msg, nil
}

func (c *apiClient) cancel(taskID string) error {
	resp, err := c.http.Post(fmt.Sprintf("%s/api/task/%s/cancel", c.base, taskID), "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) examples() ([]json.RawMessage, error) {
	resp, err := c.http.Get(c.base + "/api/examples")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var out struct {
		Examples []json.RawMessage `json:"examples"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding examples response: %w", err)
	}
	return out.Examples, nil
}

// watch streams status frames for a task, invoking onFrame per update. It
// returns nil when the server closes the stream normally after the terminal
// state.
func (c *apiClient) watch(node *config.Node, taskID string, onFrame func(state status.State, info status.Info)) error {
	url := fmt.Sprintf("ws://%s/api/ws/task/%s", node.Address, taskID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()

	for {
		var frame struct {
			State status.State `json:"state"`
			Info  status.Info  `json:"info"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		onFrame(frame.State, frame.Info)
	}
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, body.Detail)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
