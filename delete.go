package styx

import (
	"context"
	"net/http"

	types "github.com/underlay/styx-client/types"
)

// Delete removes the graph named by node
func (c *Client) Delete(ctx context.Context, node types.Term) error {
	url, err := c.target(node)
	if err != nil {
		return err
	}

	return c.delete(ctx, url)
}

// DeleteJSONLD removes the graph named by node. Blank node and variable
// ids never name a stored graph, so deleting one does nothing.
func (c *Client) DeleteJSONLD(ctx context.Context, node *types.ID) error {
	if node != nil && types.IsLocalKey(node.ID) {
		c.logger.Debug("skipping delete of local id", "id", node.ID)
		return nil
	}

	return c.delete(ctx, c.targetID(node))
}

func (c *Client) delete(ctx context.Context, url string) error {
	res, err := c.do(ctx, http.MethodDelete, url, nil, nil)
	if err != nil {
		return err
	}
	return discard(res)
}
