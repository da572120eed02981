package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	// handshakeTimeout bounds the initial websocket upgrade.
	handshakeTimeout = 10 * time.Second

	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
)

// request is the wire form of a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id,omitempty"`
}

// response is the portion of a JSON-RPC 2.0 response read by Call.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// WebsocketClient is a Client backed by a single websocket connection.
type WebsocketClient struct {
	conn *websocket.Conn

	// writeMu serializes frame writes; gorilla connections support at
	// most one concurrent writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []byte
	closed  bool

	readDone chan struct{}
}

// Dial connects to a Moonraker websocket endpoint (ws:// or wss://) and
// starts the read loop. The returned client must be closed by the caller.
func Dial(ctx context.Context, url string) (*WebsocketClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("websocket handshake with %s failed (%s): %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", url, err)
	}

	c := &WebsocketClient{
		conn:     conn,
		pending:  make(map[string]chan []byte),
		readDone: make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

// Call sends a request carrying a fresh uuid as its id and waits for the
// response with that id.
func (c *WebsocketClient) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan []byte, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("call %s: %w", method, ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(request{JSONRPC: "2.0", Method: method, Params: params, ID: id}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case raw, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("call %s: %w", method, ErrClosed)
		}
		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", method, err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("call %s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("call %s: %w", method, ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

// Notify sends a request without an id.
func (c *WebsocketClient) Notify(_ context.Context, method string, params any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("notify %s: %w", method, ErrClosed)
	}
	c.mu.Unlock()

	if err := c.write(request{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	return nil
}

// Close tears down the connection. Pending calls fail with ErrClosed.
func (c *WebsocketClient) Close() error {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()

	// Wait for the read loop to fail any remaining pending calls.
	<-c.readDone

	if alreadyClosed {
		return nil
	}
	return err
}

func (c *WebsocketClient) write(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop delivers response frames to pending calls by id. Frames without
// an id are server-initiated notifications and are dropped. On read failure
// the loop fails all pending calls and exits.
func (c *WebsocketClient) readLoop() {
	defer close(c.readDone)
	defer c.failPending()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		id := gjson.GetBytes(raw, "id")
		if !id.Exists() {
			slog.Debug("Dropping server notification",
				"method", gjson.GetBytes(raw, "method").String())
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id.String()]
		if ok {
			delete(c.pending, id.String())
		}
		c.mu.Unlock()

		if !ok {
			// Response for a call that gave up waiting
			slog.Debug("Dropping uncorrelated response", "id", id.String())
			continue
		}
		ch <- raw
	}
}

// failPending closes every pending call channel so blocked callers observe
// ErrClosed.
func (c *WebsocketClient) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
