package styx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	types "github.com/underlay/styx-client/types"
)

// Set replaces the graph named by node with quads. A nil node or the
// default graph targets the service root.
func (c *Client) Set(ctx context.Context, node types.Term, quads []types.Quad) error {
	url, err := c.target(node)
	if err != nil {
		return err
	}

	body, err := json.Marshal(types.QuadsToWire(quads))
	if err != nil {
		return err
	}

	return c.put(ctx, url, MediaTypeJSON, body)
}

// SetJSONLD replaces the graph named by node with a JSON-LD document,
// which is sent as-is for the service to parse
func (c *Client) SetJSONLD(ctx context.Context, node *types.ID, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return c.put(ctx, c.targetID(node), MediaTypeJSONLD, body)
}

func (c *Client) put(ctx context.Context, url, contentType string, body []byte) error {
	header := http.Header{"Content-Type": []string{contentType}}
	res, err := c.do(ctx, http.MethodPut, url, header, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return discard(res)
}
