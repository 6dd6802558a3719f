package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	jsonrpc2 "github.com/sourcegraph/jsonrpc2"
)

// Notification is an out-of-band message pushed by the server
type Notification struct {
	Method string
	Params json.RawMessage
}

// NotificationHandler receives notifications on the client's read
// goroutine. It may close the client.
type NotificationHandler func(Notification)

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger notifications and protocol failures go to
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds every call; zero means calls wait until the
// response arrives, the context ends or the client is closed
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithNotificationHandler registers a handler for server notifications
func WithNotificationHandler(handler NotificationHandler) Option {
	return func(c *Client) { c.notify = handler }
}

type reply struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	reply  chan reply
}

// Client issues JSON-RPC calls over a Transport. Responses are matched
// to calls by id through a table of pending calls, so Call may be used
// from several goroutines. Any protocol anomaly is fatal to the
// connection: every pending call fails and later calls return the
// same error.
type Client struct {
	transport Transport
	logger    *slog.Logger
	notify    NotificationHandler
	timeout   time.Duration

	writeMutex sync.Mutex

	mutex     sync.Mutex
	seq       uint64
	pending   map[uint64]*pendingCall
	abandoned map[uint64]struct{}
	closing   bool
	err       error

	closeOnce sync.Once
	done      chan struct{}
	notifying atomic.Bool
}

// NewClient starts reading frames from transport
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    slog.Default(),
		pending:   map[uint64]*pendingCall{},
		abandoned: map[uint64]struct{}{},
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.dispatch()
	return c
}

// Call sends a request and waits for its response. Call ids start at
// zero and are never reused. Params are always sent as an array.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("rpc: %s: encoding params: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mutex.Lock()
	if c.err != nil {
		err := c.err
		c.mutex.Unlock()
		return nil, err
	}
	id := c.seq
	c.seq++
	call := &pendingCall{method: method, reply: make(chan reply, 1)}
	c.pending[id] = call
	c.mutex.Unlock()

	raw := json.RawMessage(data)
	frame, err := json.Marshal(&jsonrpc2.Request{Method: method, Params: &raw, ID: jsonrpc2.ID{Num: id}})
	if err != nil {
		c.forget(id, false)
		return nil, fmt.Errorf("rpc: %s: encoding request: %w", method, err)
	}

	c.writeMutex.Lock()
	err = c.transport.WriteFrame(frame)
	c.writeMutex.Unlock()
	if err != nil {
		c.forget(id, false)
		if c.isClosing() {
			return nil, &TransportError{Op: "write", Err: ErrClosed}
		}
		return nil, &TransportError{Op: "write", Err: err}
	}

	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-ctx.Done():
		c.forget(id, true)
		return nil, fmt.Errorf("rpc: %s: %w", method, ctx.Err())
	}
}

// Close closes the transport with a normal closure and fails every
// pending call with ErrClosed. It is safe to call more than once.
// Close waits for the read goroutine to stop, except when it is called
// from a NotificationHandler running on that goroutine.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mutex.Lock()
		c.closing = true
		c.mutex.Unlock()

		c.fail(&TransportError{Op: "close", Err: ErrClosed})
		err = c.transport.Close()
		if !c.notifying.Load() {
			<-c.done
		}
	})
	return err
}

// Done is closed once the client has stopped reading frames
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) isClosing() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closing
}

// forget removes a pending call. Abandoned ids are remembered so that
// a late response to a timed-out call is dropped rather than treated
// as a protocol violation. A call that was already answered is not
// abandoned.
func (c *Client) forget(id uint64, abandon bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, pending := c.pending[id]; pending && abandon {
		c.abandoned[id] = struct{}{}
	}
	delete(c.pending, id)
}

// fail records the connection's terminal error (the first one wins)
// and resolves every pending call with it
func (c *Client) fail(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.err == nil {
		c.err = err
	}
	for id, call := range c.pending {
		call.reply <- reply{err: c.err}
		delete(c.pending, id)
	}
}

// abort fails the connection with a protocol error and closes the
// transport, which ends the dispatch loop
func (c *Client) abort(err *ProtocolError) {
	c.logger.Error("rpc protocol error", "reason", err.Reason, "frame", string(err.Frame))
	c.fail(err)
	_ = c.transport.Close()
}

func (c *Client) dispatch() {
	defer close(c.done)
	for {
		frame, err := c.transport.ReadFrame()
		if err != nil {
			if c.isClosing() {
				c.fail(&TransportError{Op: "read", Err: ErrClosed})
			} else {
				c.fail(&TransportError{Op: "read", Err: fmt.Errorf("%w: %w", ErrUnexpectedEOF, err)})
			}
			return
		}

		c.handle(frame)
	}
}

func (c *Client) handle(frame []byte) {
	m := parseMessage(frame)
	switch m.kind {
	case notificationMessage:
		c.logger.Info("rpc notification", "method", m.method, "params", string(m.params))
		if c.notify != nil {
			c.notifying.Store(true)
			c.notify(Notification{Method: m.method, Params: m.params})
			c.notifying.Store(false)
		}
	case successMessage, errorMessage:
		if !m.hasID {
			// an error the server could not attribute to a request
			c.logger.Error("rpc error response without id", "error", m.err.Message)
			c.resolveAll(&Error{Payload: m.err})
			return
		}
		c.resolve(m, frame)
	case requestMessage:
		c.abort(&ProtocolError{Reason: "unexpected request " + m.method, Frame: frame})
	case batchMessage:
		c.abort(&ProtocolError{Reason: "unexpected batch response", Frame: frame})
	default:
		c.abort(&ProtocolError{Reason: "invalid message: " + m.reason, Frame: frame})
	}
}

func (c *Client) resolve(m *message, frame []byte) {
	c.mutex.Lock()
	var call *pendingCall
	var dropped bool
	if !m.id.IsString {
		call = c.pending[m.id.Num]
		delete(c.pending, m.id.Num)
		if _, dropped = c.abandoned[m.id.Num]; dropped {
			delete(c.abandoned, m.id.Num)
		}
	}
	c.mutex.Unlock()

	if dropped {
		c.logger.Debug("rpc dropping response to abandoned call", "id", m.id.Num)
		return
	} else if call == nil {
		c.abort(&ProtocolError{Reason: "response id " + formatID(m.id) + " matches no pending call", Frame: frame})
		return
	}

	if m.kind == errorMessage {
		call.reply <- reply{err: &Error{Method: call.method, Payload: m.err}}
	} else {
		call.reply <- reply{result: m.result}
	}
}

func (c *Client) resolveAll(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for id, call := range c.pending {
		if e, is := err.(*Error); is {
			err = &Error{Method: call.method, Payload: e.Payload}
		}
		call.reply <- reply{err: err}
		delete(c.pending, id)
	}
}
