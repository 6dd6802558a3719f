package server

import (
	"context"
	"log/slog"
	"net/http"

	websocket "github.com/gorilla/websocket"
	ld "github.com/piprate/json-gold/ld"
	cors "github.com/rs/cors"
	websocketjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"

	types "github.com/underlay/styx-client/types"
)

// Subprotocol is the WebSocket subprotocol of the query socket
const Subprotocol = "rpc"

// Media types the graph endpoints read and write
const (
	MediaTypeJSON   = "application/json"
	MediaTypeJSONLD = "application/ld+json"
)

var offers = []string{MediaTypeJSON, MediaTypeJSONLD}

// Server is an in-memory graph store speaking the styx HTTP and query
// socket protocols. Graphs are addressed by the raw query string of
// the root URL; a WebSocket upgrade on the root opens a query socket.
type Server struct {
	store    *Store
	logger   *slog.Logger
	loader   ld.DocumentLoader
	upgrader websocket.Upgrader
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server's logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDocumentLoader sets the loader used to parse uploaded JSON-LD
func WithDocumentLoader(loader ld.DocumentLoader) Option {
	return func(s *Server) { s.loader = loader }
}

// New returns a server backed by store
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		s.loader = ld.NewDefaultDocumentLoader(nil)
	}

	return s
}

// Handler wraps the server with permissive CORS
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead},
		AllowedHeaders: []string{"*"},
	}).Handler(s)
}

// ServeHTTP handles HTTP requests using the store
func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" && req.URL.Path != "" {
		res.WriteHeader(http.StatusNotFound)
		return
	}

	if websocket.IsWebSocketUpgrade(req) {
		s.serveWebSocket(res, req)
		return
	}

	var err error
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		err = s.Get(res, req)
	case http.MethodPut:
		err = s.Put(res, req)
	case http.MethodDelete:
		err = s.Delete(res, req)
	default:
		res.WriteHeader(http.StatusMethodNotAllowed)
	}

	if err != nil {
		s.logger.Error("request failed", "method", req.Method, "target", req.URL.RawQuery, "error", err)
		res.Write([]byte(err.Error()))
		res.Write([]byte("\n"))
	}
}

func (s *Server) serveWebSocket(res http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(res, req, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	if conn.Subprotocol() != Subprotocol {
		s.logger.Warn("rejecting websocket without the rpc subprotocol")
		message := websocket.FormatCloseMessage(websocket.CloseProtocolError, "expected subprotocol "+Subprotocol)
		_ = conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	s.serveRPC(context.Background(), websocketjsonrpc2.NewObjectStream(conn))
}

// target is the graph a request addresses: the default graph for the
// bare root, or the resource named by the raw query string
func target(req *http.Request) (types.Term, error) {
	id := req.URL.RawQuery
	if id == "" {
		return types.Default, nil
	} else if types.IsLocalKey(id) {
		return nil, &types.ValidationError{Field: "graph", Reason: "local id " + id + " cannot name a graph"}
	}
	return types.NewResource(id), nil
}
