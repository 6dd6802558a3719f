package styx

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"

	types "github.com/underlay/styx-client/types"
)

// Media types of the whole-graph endpoints
const (
	MediaTypeJSON   = "application/json"
	MediaTypeJSONLD = "application/ld+json"
)

// HTTPError is a non-2xx response; its message is the status text
type HTTPError struct {
	StatusCode int
	StatusText string
	Body       []byte
}

func (e *HTTPError) Error() string { return e.StatusText }

// target derives the URL of a graph. The identifier is appended as
// the raw query string; callers must encode it themselves.
func (c *Client) target(node types.Term) (string, error) {
	switch t := node.(type) {
	case nil, types.DefaultGraph:
		return c.root(), nil
	case types.Resource:
		return c.root() + "?" + t.ID, nil
	}
	return "", &types.ValidationError{Field: "graph", Reason: node.Kind().String() + " cannot name a graph"}
}

func (c *Client) targetID(node *types.ID) string {
	if node == nil || node.ID == "" {
		return c.root()
	}
	return c.root() + "?" + node.ID
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		data, _ := ioutil.ReadAll(res.Body)
		c.logger.Error("graph request failed", "method", method, "url", url, "status", res.Status, "body", string(data))
		return nil, &HTTPError{StatusCode: res.StatusCode, StatusText: statusText(res), Body: data}
	}

	return res, nil
}

// statusText is the reason phrase of the response's status line
func statusText(res *http.Response) string {
	text := strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)+" ")
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}

func discard(res *http.Response) error {
	_, _ = io.Copy(ioutil.Discard, res.Body)
	return res.Body.Close()
}
