package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rpc "github.com/underlay/styx-client/rpc"
	types "github.com/underlay/styx-client/types"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	s := New(openStore(t))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func request(t *testing.T, method, url, contentType, accept string, body []byte) (*http.Response, []byte) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func TestGraphEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	quads := []types.Quad{types.MustQuad(a, p, x, nil)}
	body, err := json.Marshal(types.QuadsToWire(quads))
	require.NoError(t, err)

	res, _ := request(t, http.MethodPut, ts.URL+"?urn:g1", MediaTypeJSON, "", body)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, data := request(t, http.MethodGet, ts.URL+"?urn:g1", "", MediaTypeJSON, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, MediaTypeJSON, res.Header.Get("Content-Type"))
	var wire []types.WireQuad
	require.NoError(t, json.Unmarshal(data, &wire))
	stored, err := types.QuadsFromWire(wire)
	require.NoError(t, err)
	assert.Equal(t, quads, stored)

	res, data = request(t, http.MethodGet, ts.URL+"?urn:g1", "", MediaTypeJSONLD, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `[{"@id":"urn:a","urn:p":[{"@value":"x"}]}]`, string(data))

	res, _ = request(t, http.MethodDelete, ts.URL+"?urn:g1", "", "", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, _ = request(t, http.MethodGet, ts.URL+"?urn:g1", "", MediaTypeJSON, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res, _ = request(t, http.MethodDelete, ts.URL+"?urn:g1", "", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGraphEndpointErrors(t *testing.T) {
	_, ts := newTestServer(t)

	res, data := request(t, http.MethodGet, ts.URL, "", MediaTypeJSON, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `[]`, string(data))

	res, _ = request(t, http.MethodPut, ts.URL, "text/plain", "", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)

	res, _ = request(t, http.MethodPut, ts.URL, MediaTypeJSON, "", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = request(t, http.MethodPut, ts.URL+"?_:b", MediaTypeJSON, "", []byte(`[]`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	variable, err := json.Marshal(types.QuadsToWire([]types.Quad{types.MustQuad(a, p, varO, nil)}))
	require.NoError(t, err)
	res, _ = request(t, http.MethodPut, ts.URL, MediaTypeJSON, "", variable)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = request(t, http.MethodPost, ts.URL, MediaTypeJSON, "", []byte(`[]`))
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	res, _ = request(t, http.MethodGet, ts.URL+"/elsewhere", "", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetJSONLDValues(t *testing.T) {
	_, ts := newTestServer(t)
	n := types.NewTypedLiteral("5", "http://www.w3.org/2001/XMLSchema#integer")
	hallo := types.NewLangLiteral("hallo", "de")
	quads := []types.Quad{
		types.MustQuad(a, p, types.NewBlankNode("b0"), nil),
		types.MustQuad(a, q, n, nil),
		types.MustQuad(a, r, hallo, nil),
	}
	body, err := json.Marshal(types.QuadsToWire(quads))
	require.NoError(t, err)

	res, _ := request(t, http.MethodPut, ts.URL+"?urn:g1", MediaTypeJSON, "", body)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, data := request(t, http.MethodGet, ts.URL+"?urn:g1", "", MediaTypeJSONLD, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, MediaTypeJSONLD, res.Header.Get("Content-Type"))
	assert.JSONEq(t, `[{
		"@id": "urn:a",
		"urn:p": [{"@id": "_:b0"}],
		"urn:q": [{"@value": "5", "@type": "http://www.w3.org/2001/XMLSchema#integer"}],
		"urn:r": [{"@value": "hallo", "@language": "de"}]
	}]`, string(data))

	// the empty root renders as an empty document
	res, data = request(t, http.MethodGet, ts.URL, "", MediaTypeJSONLD, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `[]`, string(data))
}

func TestPutJSONLD(t *testing.T) {
	_, ts := newTestServer(t)
	doc := `{"@id":"urn:a","urn:p":{"@id":"urn:b"},"urn:q":"x"}`
	res, _ := request(t, http.MethodPut, ts.URL+"?urn:g1", MediaTypeJSONLD, "", []byte(doc))
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, data := request(t, http.MethodGet, ts.URL+"?urn:g1", "", MediaTypeJSON, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var wire []types.WireQuad
	require.NoError(t, json.Unmarshal(data, &wire))
	stored, err := types.QuadsFromWire(wire)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.Quad{
		types.MustQuad(a, p, b, nil),
		types.MustQuad(a, q, x, nil),
	}, stored)
}

func seed(t *testing.T, s *Server) {
	for _, src := range testSources() {
		existing, err := s.store.Get(src.origin)
		if err == ErrNotFound {
			existing = nil
		} else {
			require.NoError(t, err)
		}
		require.NoError(t, s.store.Set(src.origin, append(existing, src.quad)))
	}
}

func queryParams(t *testing.T) []interface{} {
	pattern := types.QuadsToWire([]types.Quad{types.MustQuad(a, varP, varO, nil)})
	return []interface{}{pattern, nil, nil}
}

func TestQuerySocket(t *testing.T) {
	s, ts := newTestServer(t)
	seed(t, s)

	notifications := make(chan rpc.Notification, 1)
	ctx := context.Background()
	transport, err := rpc.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	client := rpc.NewClient(transport, rpc.WithNotificationHandler(func(n rpc.Notification) { notifications <- n }))
	defer client.Close()

	result, err := client.Call(ctx, "query", queryParams(t)...)
	require.NoError(t, err)
	domain, err := types.UnmarshalTerms(result)
	require.NoError(t, err)
	assert.Equal(t, []types.Term{varP, varO}, domain)

	select {
	case n := <-notifications:
		assert.Equal(t, "count", n.Method)
		assert.JSONEq(t, `[3]`, string(n.Params))
	case <-time.After(time.Second):
		t.Fatal("no count notification")
	}

	result, err = client.Call(ctx, "next")
	require.NoError(t, err)
	delta, err := types.UnmarshalTerms(result)
	require.NoError(t, err)
	assert.Equal(t, []types.Term{p, b}, delta)

	result, err = client.Call(ctx, "prov")
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"kind":"Resource","value":"urn:g1"}]]`, string(result))

	result, err = client.Call(ctx, "next", types.ToWire(varP))
	require.NoError(t, err)
	delta, err = types.UnmarshalTerms(result)
	require.NoError(t, err)
	assert.Equal(t, []types.Term{r, y}, delta)

	result, err = client.Call(ctx, "next")
	require.NoError(t, err)
	assert.Equal(t, "null", string(result))

	_, err = client.Call(ctx, "next", types.ToWire(a))
	var rerr *rpc.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(-32602), rerr.Code())

	_, err = client.Call(ctx, "bogus")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(-32601), rerr.Code())
	assert.Contains(t, rerr.Error(), "unknown method bogus")

	_, err = client.Call(ctx, "close")
	require.NoError(t, err)
	_, err = client.Call(ctx, "next")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(-32600), rerr.Code())
}

func TestQueryOverTCP(t *testing.T) {
	s := New(openStore(t))
	seed(t, s)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.ServeTCP(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	client := rpc.NewClient(rpc.NewStreamTransport(conn))
	defer client.Close()

	result, err := client.Call(ctx, "query", queryParams(t)...)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"Variable","value":"p"},{"kind":"Variable","value":"o"}]`, string(result))

	_, err = client.Call(ctx, "seek", types.ToWireTerms([]types.Term{r}))
	require.NoError(t, err)
	result, err = client.Call(ctx, "next")
	require.NoError(t, err)
	delta, err := types.UnmarshalTerms(result)
	require.NoError(t, err)
	assert.Equal(t, []types.Term{r, y}, delta)
}
