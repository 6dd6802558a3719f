package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrpc2 "github.com/sourcegraph/jsonrpc2"
)

// ErrClosed is returned by calls that were pending, or issued, after
// the client was closed
var ErrClosed = errors.New("connection closed")

// ErrUnexpectedEOF means the peer ended the connection while calls
// were still waiting for a response
var ErrUnexpectedEOF = errors.New("connection ended unexpectedly")

// TransportError is a connection-level failure
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "rpc: " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a frame the client cannot accept: unparseable,
// a batch, a reverse request, or a response that matches no call
type ProtocolError struct {
	Reason string
	Frame  []byte
}

func (e *ProtocolError) Error() string { return "rpc: protocol error: " + e.Reason }

// Error is an application-level error reported by the server
type Error struct {
	Method  string
	Payload *jsonrpc2.Error
}

func (e *Error) Error() string {
	if e.Payload == nil {
		return fmt.Sprintf("rpc: %s: received error response", e.Method)
	} else if e.Payload.Message == "" {
		return fmt.Sprintf("rpc: %s: received error response (code %d)", e.Method, e.Payload.Code)
	}
	return fmt.Sprintf("rpc: %s: %s (code %d)", e.Method, e.Payload.Message, e.Payload.Code)
}

// Code returns the JSON-RPC error code, or 0 if the payload is missing
func (e *Error) Code() int64 {
	if e.Payload == nil {
		return 0
	}
	return e.Payload.Code
}

// Data returns the error's data member, if any
func (e *Error) Data() json.RawMessage {
	if e.Payload == nil || e.Payload.Data == nil {
		return nil
	}
	return *e.Payload.Data
}
