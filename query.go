package styx

import (
	"context"
	"encoding/json"

	query "github.com/underlay/styx-client/query"
	rpc "github.com/underlay/styx-client/rpc"
	types "github.com/underlay/styx-client/types"
)

// Cursor is a query cursor over terms
type Cursor = query.Cursor[types.Term, types.Term]

// LinkedDataCursor is a query cursor keyed by external ids and valued
// by JSON-LD terms
type LinkedDataCursor = query.Cursor[types.ID, types.LinkedData]

// Query opens a query socket and starts matching pattern. The optional
// domain fixes the order of the leading variables; the optional index
// is a hint for where iteration should begin. The returned cursor owns
// the socket and must be closed.
func (c *Client) Query(ctx context.Context, pattern []types.Quad, domain []types.Term, index []types.Term) (*Cursor, error) {
	params := []interface{}{types.QuadsToWire(pattern), nil, nil}
	if domain != nil {
		params[1] = types.ToWireTerms(domain)
	}
	if index != nil {
		params[2] = types.ToWireTerms(index)
	}

	client, first, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	return query.New(client, first, query.TermCodec), nil
}

// QueryJSONLD lowers a JSON-LD document into a pattern and queries it.
// Ids of the form "?:name" in the document are variables; domain and
// the returned cursor's keys use the same external ids.
func (c *Client) QueryJSONLD(ctx context.Context, doc interface{}, domain []types.ID, index []types.LinkedData) (*LinkedDataCursor, error) {
	pattern, err := c.Lower(doc)
	if err != nil {
		return nil, err
	}

	params := []interface{}{types.QuadsToWire(pattern), nil, nil}
	if domain != nil {
		terms := make([]types.WireTerm, len(domain))
		for i, id := range domain {
			terms[i] = types.ToWire(id.Term())
		}
		params[1] = terms
	}

	if index != nil {
		terms := make([]types.WireTerm, len(index))
		for i, value := range index {
			term, err := types.FromLinkedData(value)
			if err != nil {
				return nil, err
			}
			terms[i] = types.ToWire(term)
		}
		params[2] = terms
	}

	client, first, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	keys := make([]types.ID, len(first))
	for i, term := range first {
		key, err := types.ExternalKey(term)
		if err != nil {
			client.Close()
			return nil, err
		}
		keys[i] = types.ID{ID: key}
	}

	return query.New(client, keys, query.LinkedDataCodec), nil
}

// query issues the query call on a fresh socket and decodes the domain
// it answers with. The socket is closed on every failure.
func (c *Client) query(ctx context.Context, params []interface{}) (*rpc.Client, []types.Term, error) {
	client, err := c.openRPC(ctx)
	if err != nil {
		return nil, nil, err
	}

	result, err := client.Call(ctx, "query", params...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil || raw == nil {
		// anything but an array means the query has no results
		return client, nil, nil
	}

	first, err := types.UnmarshalTerms(result)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return client, first, nil
}
