package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	rpc "github.com/underlay/styx-client/rpc"
	types "github.com/underlay/styx-client/types"
)

// Caller is the part of *rpc.Client a Cursor needs
type Caller interface {
	Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	Close() error
}

var _ Caller = (*rpc.Client)(nil)

// Entry is one binding of a cursor's index
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// A Cursor is a forward-only, server-driven iterator over variable
// bindings. Each call to Next merges the delta it returns into the
// cursor's index; once the server reports the end of results the
// domain and index are cleared and the cursor stays exhausted.
// A Cursor is not safe for concurrent use.
type Cursor[K comparable, V any] struct {
	caller Caller
	codec  Codec[K, V]
	domain []K
	index  map[K]V
}

// New creates a cursor over domain. An empty domain means the query
// has no results and the cursor starts exhausted.
func New[K comparable, V any](caller Caller, domain []K, codec Codec[K, V]) *Cursor[K, V] {
	c := &Cursor[K, V]{caller: caller, codec: codec, index: map[K]V{}}
	if len(domain) > 0 {
		c.domain = append([]K{}, domain...)
	}
	return c
}

// Done reports whether the cursor is exhausted
func (c *Cursor[K, V]) Done() bool { return c.domain == nil }

// Close releases the underlying connection
func (c *Cursor[K, V]) Close() error { return c.caller.Close() }

// Keys returns the domain, in order
func (c *Cursor[K, V]) Keys() []K {
	return append([]K{}, c.domain...)
}

// Values returns the bound values of the index in domain order
func (c *Cursor[K, V]) Values() []V {
	values := make([]V, 0, len(c.index))
	for _, key := range c.domain {
		if value, has := c.index[key]; has {
			values = append(values, value)
		}
	}
	return values
}

// Entries returns the index in domain order
func (c *Cursor[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, len(c.index))
	for _, key := range c.domain {
		if value, has := c.index[key]; has {
			entries = append(entries, Entry[K, V]{key, value})
		}
	}
	return entries
}

// Get returns the value currently bound to key
func (c *Cursor[K, V]) Get(key K) (V, bool) {
	value, has := c.index[key]
	return value, has
}

// Next advances to the next result. It returns the bindings that
// changed, which are always a suffix of the domain, or nil once
// there are no more results.
func (c *Cursor[K, V]) Next(ctx context.Context) (map[K]V, error) {
	if c.Done() {
		return nil, nil
	}
	return c.next(ctx)
}

// NextFrom advances the server past every result that shares the
// current binding of key and everything before it in the domain
func (c *Cursor[K, V]) NextFrom(ctx context.Context, key K) (map[K]V, error) {
	if c.Done() {
		return nil, nil
	}

	node, err := c.codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	return c.next(ctx, node)
}

func (c *Cursor[K, V]) next(ctx context.Context, params ...interface{}) (map[K]V, error) {
	result, err := c.caller.Call(ctx, "next", params...)
	if err != nil {
		return nil, err
	}

	if isNull(result) {
		c.domain = nil
		c.index = map[K]V{}
		return nil, nil
	}

	var values []json.RawMessage
	if err := json.Unmarshal(result, &values); err != nil {
		return nil, &rpc.ProtocolError{Reason: "next result is neither null nor an array", Frame: result}
	} else if len(values) > len(c.domain) {
		reason := fmt.Sprintf("next returned %d values for a domain of %d", len(values), len(c.domain))
		return nil, &rpc.ProtocolError{Reason: reason, Frame: result}
	}

	// the values bind the last len(values) keys of the domain
	keys := c.domain[len(c.domain)-len(values):]
	delta := make(map[K]V, len(values))
	for i, raw := range values {
		value, err := c.codec.DecodeValue(raw)
		if err != nil {
			return nil, err
		}
		delta[keys[i]] = value
	}

	for key, value := range delta {
		c.index[key] = value
	}

	return delta, nil
}

// Seek repositions the server-side iteration at index. A nil index
// is sent as no parameter. The cursor's own index is left alone until
// the next call to Next.
func (c *Cursor[K, V]) Seek(ctx context.Context, index []V) error {
	if c.Done() {
		return nil
	}

	params := []interface{}{}
	if index != nil {
		nodes := make([]types.WireTerm, len(index))
		for i, value := range index {
			node, err := c.codec.EncodeValue(value)
			if err != nil {
				return err
			}
			nodes[i] = node
		}
		params = append(params, nodes)
	}

	_, err := c.caller.Call(ctx, "seek", params...)
	return err
}

// Prov retrieves the provenance of the current result: one row per
// source, each decoded with the cursor's value codec, or nil for rows
// the server did not send as an array
func (c *Cursor[K, V]) Prov(ctx context.Context) ([][]V, error) {
	if c.Done() {
		return nil, nil
	}

	result, err := c.caller.Call(ctx, "prov")
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if isNull(result) || json.Unmarshal(result, &rows) != nil {
		return nil, nil
	}

	prov := make([][]V, len(rows))
	for i, row := range rows {
		var values []json.RawMessage
		if isNull(row) || json.Unmarshal(row, &values) != nil {
			continue
		}

		prov[i] = make([]V, len(values))
		for j, raw := range values {
			value, err := c.codec.DecodeValue(raw)
			if err != nil {
				return nil, err
			}
			prov[i][j] = value
		}
	}

	return prov, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}
