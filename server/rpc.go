package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"

	jsonrpc2 "github.com/sourcegraph/jsonrpc2"

	types "github.com/underlay/styx-client/types"
)

// ServeTCP accepts raw TCP connections on ln and speaks the query
// protocol over newline-delimited JSON until ctx is done
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		go s.serveRPC(ctx, newLineStream(conn))
	}
}

func (s *Server) serveRPC(ctx context.Context, stream jsonrpc2.ObjectStream) {
	handler := &rpcHandler{store: s.store, logger: s.logger}
	c := jsonrpc2.NewConn(ctx, stream, handler)
	<-c.DisconnectNotify()
	s.logger.Debug("query socket closed")
}

type method func(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error)

var methods = map[string]method{
	"query": callQuery,
	"next":  callNext,
	"seek":  callSeek,
	"prov":  callProv,
	"close": callClose,
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func callQuery(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error) {
	if len(params) == 0 || len(params) > 3 {
		return nil, jsonrpc2.CodeInvalidParams, nil
	}

	wire := make([]types.WireQuad, 0)
	err := json.Unmarshal(params[0], &wire)
	if err != nil || len(wire) == 0 {
		return nil, jsonrpc2.CodeInvalidParams, err
	}

	pattern, err := types.QuadsFromWire(wire)
	if err != nil {
		return nil, jsonrpc2.CodeInvalidParams, err
	}

	var domain []types.Term
	if len(params) > 1 && !isNull(params[1]) {
		domain, err = types.UnmarshalTerms(params[1])
		if err != nil {
			return nil, jsonrpc2.CodeInvalidParams, err
		}
	}

	var index []types.Term
	if len(params) > 2 && !isNull(params[2]) {
		index, err = types.UnmarshalTerms(params[2])
		if err != nil {
			return nil, jsonrpc2.CodeInvalidParams, err
		}
	}

	sources, err := handler.store.scan()
	if err != nil {
		return nil, jsonrpc2.CodeInternalError, err
	}

	handler.iterator, err = newIterator(pattern, sources, domain, index)
	if err != nil {
		return nil, jsonrpc2.CodeInvalidParams, err
	}

	// clients log this; it never answers a call
	if err := conn.Notify(ctx, "count", []int{len(handler.iterator.rows)}); err != nil {
		handler.logger.Warn("notify failed", "error", err)
	}

	return types.ToWireTerms(handler.iterator.domain), 0, nil
}

func callClose(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error) {
	if handler.iterator == nil {
		return nil, jsonrpc2.CodeInvalidRequest, nil
	}

	if len(params) > 0 {
		return nil, jsonrpc2.CodeInvalidParams, nil
	}

	handler.iterator = nil
	return nil, 0, nil
}

func callNext(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error) {
	if handler.iterator == nil {
		return nil, jsonrpc2.CodeInvalidRequest, nil
	}

	if len(params) > 1 {
		return nil, jsonrpc2.CodeInvalidParams, nil
	}

	var err error
	var term types.Term
	if len(params) > 0 && !isNull(params[0]) {
		term, err = types.UnmarshalTerm(params[0])
		if err != nil {
			return nil, jsonrpc2.CodeInvalidParams, err
		} else if !isVariable(term) {
			return nil, jsonrpc2.CodeInvalidParams, nil
		}
	}

	delta, err := handler.iterator.next(term)
	if err != nil {
		return nil, jsonrpc2.CodeInvalidParams, err
	} else if delta == nil {
		return nil, 0, nil
	}

	return types.ToWireTerms(delta), 0, nil
}

func callSeek(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error) {
	if handler.iterator == nil {
		return nil, jsonrpc2.CodeInvalidRequest, nil
	}

	if len(params) > 1 {
		return nil, jsonrpc2.CodeInvalidParams, nil
	}

	index := []types.Term{}
	var err error
	if len(params) > 0 && !isNull(params[0]) {
		index, err = types.UnmarshalTerms(params[0])
		if err != nil {
			return nil, jsonrpc2.CodeInvalidParams, err
		}
	}

	err = handler.iterator.seek(index)
	if err != nil {
		return nil, jsonrpc2.CodeInvalidParams, err
	}

	return nil, 0, nil
}

func callProv(ctx context.Context, conn *jsonrpc2.Conn, params []json.RawMessage, handler *rpcHandler) (interface{}, int64, error) {
	if handler.iterator == nil {
		return nil, jsonrpc2.CodeInvalidRequest, nil
	}

	if len(params) > 0 {
		return nil, jsonrpc2.CodeInvalidParams, nil
	}

	prov := handler.iterator.prov()
	if prov == nil {
		return nil, 0, nil
	}

	rows := make([][]types.WireTerm, len(prov))
	for i, row := range prov {
		if row != nil {
			rows[i] = types.ToWireTerms(row)
		}
	}

	return rows, 0, nil
}

// rpcHandler holds the state of one query socket
type rpcHandler struct {
	store    *Store
	logger   *slog.Logger
	iterator *iterator
}

// Handle answers one request. Notifications from the client are
// logged and dropped since no method has a fire-and-forget form.
func (handler *rpcHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request) {
	if request.Notif {
		handler.logger.Debug("ignoring rpc notification", "method", request.Method)
		return
	}

	result, respErr := handler.call(ctx, conn, request)
	var err error
	if respErr != nil {
		handler.logger.Debug("rpc call failed", "method", request.Method, "code", respErr.Code, "error", respErr.Message)
		err = conn.ReplyWithError(ctx, request.ID, respErr)
	} else {
		err = conn.Reply(ctx, request.ID, result)
	}

	if err != nil {
		handler.logger.Warn("rpc reply failed", "method", request.Method, "error", err)
	}
}

func (handler *rpcHandler) call(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request) (interface{}, *jsonrpc2.Error) {
	method, has := methods[request.Method]
	if !has {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method " + request.Method}
	}

	params := []json.RawMessage{}
	if request.Params != nil {
		if err := json.Unmarshal(*request.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "params must be an array"}
		}
	}

	result, code, err := method(ctx, conn, params, handler)
	if code == 0 {
		return result, nil
	}

	respErr := &jsonrpc2.Error{Code: code}
	if err != nil {
		respErr.Message = err.Error()
	}
	return nil, respErr
}

// lineStream carries one JSON value per line over a raw connection,
// the framing rpc.NewStreamTransport reads on the client side
type lineStream struct {
	conn    net.Conn
	encoder *json.Encoder
	decoder *json.Decoder
}

func newLineStream(conn net.Conn) *lineStream {
	return &lineStream{conn: conn, encoder: json.NewEncoder(conn), decoder: json.NewDecoder(conn)}
}

func (stream *lineStream) Close() error { return stream.conn.Close() }

// WriteObject writes obj followed by a newline
func (stream *lineStream) WriteObject(obj interface{}) error { return stream.encoder.Encode(obj) }

// ReadObject reads the next value; a connection closed by either side
// reads as io.EOF
func (stream *lineStream) ReadObject(v interface{}) error {
	err := stream.decoder.Decode(v)
	if errors.Is(err, net.ErrClosed) {
		return io.EOF
	}
	return err
}
