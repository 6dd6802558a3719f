package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	jsonrpc2 "github.com/sourcegraph/jsonrpc2"
)

// messageKind classifies an inbound frame
type messageKind uint8

const (
	invalidMessage messageKind = iota
	successMessage
	errorMessage
	notificationMessage
	requestMessage
	batchMessage
)

func (k messageKind) String() string {
	switch k {
	case successMessage:
		return "success"
	case errorMessage:
		return "error"
	case notificationMessage:
		return "notification"
	case requestMessage:
		return "request"
	case batchMessage:
		return "batch"
	}
	return "invalid"
}

type message struct {
	kind   messageKind
	hasID  bool
	id     jsonrpc2.ID
	method string
	params json.RawMessage
	result json.RawMessage
	err    *jsonrpc2.Error
	reason string
}

func formatID(id jsonrpc2.ID) string {
	if id.IsString {
		return strconv.Quote(id.Str)
	}
	return strconv.FormatUint(id.Num, 10)
}

func invalid(reason string) *message { return &message{kind: invalidMessage, reason: reason} }

// parseMessage classifies a frame as success, error, notification,
// request, batch or invalid. Presence of a member is what matters,
// so a success with a null result is still a success.
func parseMessage(frame []byte) *message {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return invalid("empty frame")
	} else if frame[0] == '[' {
		return &message{kind: batchMessage}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return invalid("unparseable frame: " + err.Error())
	}

	if version, has := fields["jsonrpc"]; has && string(version) != `"2.0"` {
		return invalid("unsupported jsonrpc version " + string(version))
	}

	m := &message{}
	if raw, has := fields["id"]; has && string(raw) != "null" {
		if err := json.Unmarshal(raw, &m.id); err != nil {
			return invalid("invalid id " + string(raw))
		}
		m.hasID = true
	}

	if raw, has := fields["method"]; has {
		if err := json.Unmarshal(raw, &m.method); err != nil || m.method == "" {
			return invalid("invalid method " + string(raw))
		}
		m.params = fields["params"]
		if m.hasID {
			m.kind = requestMessage
		} else {
			m.kind = notificationMessage
		}
		return m
	}

	_, hasResult := fields["result"]
	raw, hasError := fields["error"]
	switch {
	case hasResult && hasError:
		return invalid("response has both result and error")
	case hasResult:
		if !m.hasID {
			return invalid("success response without id")
		}
		m.kind, m.result = successMessage, fields["result"]
	case hasError:
		m.err = &jsonrpc2.Error{}
		if err := json.Unmarshal(raw, m.err); err != nil {
			return invalid("invalid error member " + string(raw))
		}
		m.kind = errorMessage
	default:
		return invalid("frame is neither a request nor a response")
	}

	return m
}
