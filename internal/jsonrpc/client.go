// Package jsonrpc provides the JSON-RPC 2.0 client used to talk to Moonraker.
//
// Moonraker carries its JSON-RPC traffic over a websocket connection. The
// package exposes a small Client interface consumed by the sync layer and a
// websocket-backed implementation that correlates responses to in-flight
// requests by id. The client does not reconnect: one connection is dialed up
// front and a failed connection is surfaced to the caller.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by Client implementations.
var (
	// ErrTimeout indicates the context deadline expired before a
	// correlated response arrived.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed indicates the connection was closed before a correlated
	// response arrived.
	ErrClosed = errors.New("connection closed")
)

// RPCError is an error object returned by the remote peer in a response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Client sends JSON-RPC 2.0 requests to a remote peer.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/moni11811/mobileraker-companion-rinkhals/internal/jsonrpc Client
type Client interface {
	// Call sends a request and blocks until the correlated response
	// arrives, ctx is done, or the connection fails. It returns the raw
	// result member of the response; an error object in the response is
	// returned as a *RPCError.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notify sends a request without an id. No response is awaited.
	Notify(ctx context.Context, method string, params any) error

	// Close tears down the connection and unblocks pending calls.
	Close() error
}
