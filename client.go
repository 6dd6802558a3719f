package styx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ld "github.com/piprate/json-gold/ld"

	rpc "github.com/underlay/styx-client/rpc"
)

// DialFunc opens the query socket to host
type DialFunc func(ctx context.Context, host string) (rpc.Transport, error)

// Client is a handle to a remote graph store at host (a host[:port]
// with no scheme). It has no connection state of its own: every query
// opens its own socket, owned by the returned cursor.
type Client struct {
	host       string
	secure     bool
	httpClient *http.Client
	dial       DialFunc
	loader     ld.DocumentLoader
	logger     *slog.Logger
	rpcOptions []rpc.Option
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the client used for whole-graph requests and,
// unless WithDocumentLoader is given, for loading remote JSON-LD contexts
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTLS switches the service root to https:// and wss://
func WithTLS() Option {
	return func(c *Client) { c.secure = true }
}

// WithDialer replaces the WebSocket dialer used for queries
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithDocumentLoader sets the loader json-gold resolves remote
// contexts with when lowering JSON-LD queries
func WithDocumentLoader(loader ld.DocumentLoader) Option {
	return func(c *Client) { c.loader = loader }
}

// WithLogger sets the logger for HTTP failures and RPC notifications
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds every RPC call made by query cursors
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.rpcOptions = append(c.rpcOptions, rpc.WithTimeout(timeout)) }
}

// WithNotificationHandler receives server notifications on every query socket
func WithNotificationHandler(handler rpc.NotificationHandler) Option {
	return func(c *Client) { c.rpcOptions = append(c.rpcOptions, rpc.WithNotificationHandler(handler)) }
}

// NewClient returns a client for the store at host
func NewClient(host string, opts ...Option) *Client {
	c := &Client{
		host:       host,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dial == nil {
		c.dial = c.dialWebSocket
	}

	if c.loader == nil {
		c.loader = ld.NewDefaultDocumentLoader(c.httpClient)
	}

	return c
}

// Host returns the host the client was created with
func (c *Client) Host() string { return c.host }

func (c *Client) root() string {
	if c.secure {
		return "https://" + c.host
	}
	return "http://" + c.host
}

func (c *Client) dialWebSocket(ctx context.Context, host string) (rpc.Transport, error) {
	scheme := "ws://"
	if c.secure {
		scheme = "wss://"
	}
	return rpc.Dial(ctx, scheme+host, nil)
}

func (c *Client) openRPC(ctx context.Context) (*rpc.Client, error) {
	c.logger.Debug("opening query socket", "host", c.host)
	transport, err := c.dial(ctx, c.host)
	if err != nil {
		return nil, err
	}

	opts := append([]rpc.Option{rpc.WithLogger(c.logger)}, c.rpcOptions...)
	return rpc.NewClient(transport, opts...), nil
}
