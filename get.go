package styx

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"

	types "github.com/underlay/styx-client/types"
)

// Get fetches the graph named by node. It returns nil without an error
// when the service answers with anything other than a JSON array.
func (c *Client) Get(ctx context.Context, node types.Term) ([]types.Quad, error) {
	url, err := c.target(node)
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, url, MediaTypeJSON)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, nil
	}

	var quads []types.WireQuad
	if err := json.Unmarshal(data, &quads); err != nil {
		return nil, err
	}

	return types.QuadsFromWire(quads)
}

// GetJSONLD fetches the graph named by node as a JSON-LD document
func (c *Client) GetJSONLD(ctx context.Context, node *types.ID) (interface{}, error) {
	data, err := c.get(ctx, c.targetID(node), MediaTypeJSONLD)
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	header := http.Header{"Accept": []string{accept}}
	res, err := c.do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()
	return ioutil.ReadAll(res.Body)
}
