package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	websocket "github.com/gorilla/websocket"
)

// Subprotocol is the WebSocket subprotocol the query socket speaks
const Subprotocol = "rpc"

// A Transport carries whole text frames in both directions.
// ReadFrame is only called from one goroutine; WriteFrame calls are
// serialized by the Client. Close must unblock a pending ReadFrame.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Dial opens a WebSocket transport to url. A nil dialer uses
// websocket.DefaultDialer with the "rpc" subprotocol.
func Dial(ctx context.Context, url string, dialer *websocket.Dialer) (Transport, error) {
	if dialer == nil {
		d := *websocket.DefaultDialer
		d.Subprotocols = []string{Subprotocol}
		dialer = &d
	}

	conn, res, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if res != nil {
			err = fmt.Errorf("%w (%s)", err, res.Status)
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}

	return NewWebSocketTransport(conn), nil
}

// NewWebSocketTransport wraps an open WebSocket connection
func NewWebSocketTransport(conn *websocket.Conn) Transport {
	return &webSocketTransport{conn: conn}
}

type webSocketTransport struct {
	conn *websocket.Conn
	once sync.Once
	err  error
}

func (ws *webSocketTransport) ReadFrame() ([]byte, error) {
	_, data, err := ws.conn.ReadMessage()
	return data, err
}

func (ws *webSocketTransport) WriteFrame(frame []byte) error {
	return ws.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a normal-closure control frame and closes the connection
func (ws *webSocketTransport) Close() error {
	ws.once.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		ws.err = ws.conn.Close()
	})
	return ws.err
}

// NewStreamTransport frames JSON values over a byte stream such as a
// raw TCP connection, one value per frame
func NewStreamTransport(conn io.ReadWriteCloser) Transport {
	return &jsonObjectStream{
		conn:    conn,
		decoder: json.NewDecoder(conn),
	}
}

type jsonObjectStream struct {
	conn    io.ReadWriteCloser
	decoder *json.Decoder
	once    sync.Once
	err     error
}

// ReadFrame reads the next JSON value from the stream
func (os *jsonObjectStream) ReadFrame() ([]byte, error) {
	var frame json.RawMessage
	if err := os.decoder.Decode(&frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes a JSON value followed by a newline
func (os *jsonObjectStream) WriteFrame(frame []byte) error {
	_, err := os.conn.Write(append(frame, '\n'))
	return err
}

func (os *jsonObjectStream) Close() error {
	os.once.Do(func() { os.err = os.conn.Close() })
	return os.err
}
