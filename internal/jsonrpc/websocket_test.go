package jsonrpc_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/jsonrpc"
)

var upgrader = websocket.Upgrader{}

// newRPCServer starts a websocket server that answers each request frame
// with the frame produced by respond. A nil response leaves the request
// unanswered.
func newRPCServer(t *testing.T, respond func(req gjson.Result) []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if resp := respond(gjson.ParseBytes(raw)); resp != nil {
				if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTestClient(t *testing.T, server *httptest.Server) *jsonrpc.WebsocketClient {
	t.Helper()

	client, err := jsonrpc.Dial(context.Background(), wsURL(server))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestWebsocketClient_Call(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t, func(req gjson.Result) []byte {
		assert.Equal(t, "2.0", req.Get("jsonrpc").String())
		assert.Equal(t, "server.info", req.Get("method").String())
		return fmt.Appendf(nil,
			`{"jsonrpc":"2.0","result":{"klippy_state":"ready"},"id":%s}`,
			req.Get("id").Raw)
	})
	client := dialTestClient(t, server)

	result, err := client.Call(context.Background(), "server.info", nil)

	require.NoError(t, err)
	assert.Equal(t, "ready", gjson.GetBytes(result, "klippy_state").String())
}

func TestWebsocketClient_CallWithParams(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t, func(req gjson.Result) []byte {
		assert.Equal(t, "test.gcode", req.Get("params.filename").String())
		return fmt.Appendf(nil, `{"jsonrpc":"2.0","result":{"size":1024},"id":%s}`, req.Get("id").Raw)
	})
	client := dialTestClient(t, server)

	result, err := client.Call(context.Background(), "server.files.metadata",
		map[string]any{"filename": "test.gcode"})

	require.NoError(t, err)
	assert.Equal(t, int64(1024), gjson.GetBytes(result, "size").Int())
}

func TestWebsocketClient_CallRemoteError(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t, func(req gjson.Result) []byte {
		return fmt.Appendf(nil,
			`{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":%s}`,
			req.Get("id").Raw)
	})
	client := dialTestClient(t, server)

	result, err := client.Call(context.Background(), "server.bogus", nil)

	require.Error(t, err)
	assert.Nil(t, result)

	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "Method not found", rpcErr.Message)
}

func TestWebsocketClient_CallDeadline(t *testing.T) {
	t.Parallel()

	// Server never answers
	server := newRPCServer(t, func(_ gjson.Result) []byte { return nil })
	client := dialTestClient(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, "server.info", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, jsonrpc.ErrTimeout)
}

func TestWebsocketClient_CallCancelled(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t, func(_ gjson.Result) []byte { return nil })
	client := dialTestClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Call(ctx, "server.info", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebsocketClient_CorrelatesOutOfOrderResponses(t *testing.T) {
	t.Parallel()

	// Server that holds the first request until the second arrives, then
	// answers in reverse order.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var frames []gjson.Result
		for len(frames) < 2 {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames = append(frames, gjson.ParseBytes(raw))
		}
		for i := len(frames) - 1; i >= 0; i-- {
			req := frames[i]
			resp := fmt.Appendf(nil, `{"jsonrpc":"2.0","result":{"method":%s},"id":%s}`,
				req.Get("method").Raw, req.Get("id").Raw)
			if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	client := dialTestClient(t, server)

	results := make(chan string, 2)
	errs := make(chan error, 2)
	for _, method := range []string{"printer.objects.list", "server.info"} {
		go func() {
			result, err := client.Call(context.Background(), method, nil)
			if err != nil {
				errs <- err
				return
			}
			if gjson.GetBytes(result, "method").String() != method {
				errs <- fmt.Errorf("response for %s carried %s", method, result)
				return
			}
			results <- method
		}()
	}

	for range 2 {
		select {
		case <-results:
		case err := <-errs:
			t.Fatalf("call failed: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("calls did not complete")
		}
	}
}

func TestWebsocketClient_CloseUnblocksPending(t *testing.T) {
	t.Parallel()

	received := make(chan struct{}, 1)
	server := newRPCServer(t, func(_ gjson.Result) []byte {
		received <- struct{}{}
		return nil
	})
	client := dialTestClient(t, server)

	callErr := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "server.info", nil)
		callErr <- err
	}()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the request")
	}
	require.NoError(t, client.Close())

	select {
	case err := <-callErr:
		assert.ErrorIs(t, err, jsonrpc.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("pending call did not unblock")
	}
}

func TestWebsocketClient_ServerDisconnect(t *testing.T) {
	t.Parallel()

	// Server that drops the connection after the first request.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = conn.ReadMessage()
		_ = conn.Close()
	}))
	t.Cleanup(server.Close)
	client := dialTestClient(t, server)

	_, err := client.Call(context.Background(), "server.info", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, jsonrpc.ErrClosed)
}

func TestWebsocketClient_CallAfterClose(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t, func(_ gjson.Result) []byte { return nil })
	client := dialTestClient(t, server)
	require.NoError(t, client.Close())

	_, err := client.Call(context.Background(), "server.info", nil)

	assert.ErrorIs(t, err, jsonrpc.ErrClosed)
}

func TestWebsocketClient_Notify(t *testing.T) {
	t.Parallel()

	received := make(chan gjson.Result, 1)
	server := newRPCServer(t, func(req gjson.Result) []byte {
		received <- req
		return nil
	})
	client := dialTestClient(t, server)

	require.NoError(t, client.Notify(context.Background(), "server.restart", nil))

	select {
	case req := <-received:
		assert.Equal(t, "server.restart", req.Get("method").String())
		assert.False(t, req.Get("id").Exists(), "notifications must not carry an id")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the notification")
	}
}

func TestWebsocketClient_IgnoresServerNotifications(t *testing.T) {
	t.Parallel()

	// Server that emits an unsolicited notification before answering.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			notification := []byte(`{"jsonrpc":"2.0","method":"notify_proc_stat_update","params":[{}]}`)
			if err := conn.WriteMessage(websocket.TextMessage, notification); err != nil {
				return
			}
			req := gjson.ParseBytes(raw)
			resp := fmt.Appendf(nil, `{"jsonrpc":"2.0","result":"ok","id":%s}`, req.Get("id").Raw)
			if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	client := dialTestClient(t, server)

	result, err := client.Call(context.Background(), "server.info", nil)

	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(result))
}

func TestDial_HandshakeFailure(t *testing.T) {
	t.Parallel()

	// Plain HTTP server that refuses the upgrade
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := jsonrpc.Dial(context.Background(), wsURL(server))

	require.Error(t, err)
	assert.Nil(t, client)
}
