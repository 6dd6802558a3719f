package styx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	websocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rpc "github.com/underlay/styx-client/rpc"
	server "github.com/underlay/styx-client/server"
	types "github.com/underlay/styx-client/types"
)

var (
	a, p   = types.NewResource("urn:a"), types.NewResource("urn:p")
	hello  = types.NewLiteral("hello")
	varP   = types.NewVariable("p")
	varO   = types.NewVariable("o")
	origin = types.NewResource("urn:g")
)

func hostOf(ts *httptest.Server) string { return strings.TrimPrefix(ts.URL, "http://") }

func newReferenceServer(t *testing.T) *httptest.Server {
	store, err := server.OpenStore("", nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(store).Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return ts
}

func TestSetThenGet(t *testing.T) {
	ts := newReferenceServer(t)
	client := NewClient(hostOf(ts))
	ctx := context.Background()

	quad := types.MustQuad(a, p, hello, types.Default)
	require.NoError(t, client.Set(ctx, origin, []types.Quad{quad}))

	quads, err := client.Get(ctx, origin)
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.True(t, quad.Equal(quads[0]))

	require.NoError(t, client.Delete(ctx, origin))
	_, err = client.Get(ctx, origin)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Equal(t, "Not Found", err.Error())
}

func TestJSONLDGraphs(t *testing.T) {
	ts := newReferenceServer(t)
	client := NewClient(hostOf(ts))
	ctx := context.Background()

	id := &types.ID{ID: "urn:g"}
	doc := map[string]interface{}{"@id": "urn:a", "urn:p": "hello"}
	require.NoError(t, client.SetJSONLD(ctx, id, doc))

	quads, err := client.Get(ctx, origin)
	require.NoError(t, err)
	assert.Equal(t, []types.Quad{types.MustQuad(a, p, hello, nil)}, quads)

	out, err := client.GetJSONLD(ctx, id)
	require.NoError(t, err)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"@id":"urn:a","urn:p":[{"@value":"hello"}]}]`, string(data))

	require.NoError(t, client.DeleteJSONLD(ctx, id))
	_, err = client.GetJSONLD(ctx, id)
	assert.Error(t, err)
}

func TestTargets(t *testing.T) {
	var mutex sync.Mutex
	var requests []string
	ts := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		mutex.Lock()
		defer mutex.Unlock()
		requests = append(requests, req.Method+" "+req.URL.RawQuery)
		res.Write([]byte(`{"not":"an array"}`))
	}))
	defer ts.Close()

	client := NewClient(hostOf(ts))
	ctx := context.Background()

	quads, err := client.Get(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, quads)

	var verr *types.ValidationError
	assert.ErrorAs(t, client.Delete(ctx, types.NewBlankNode("b")), &verr)
	assert.ErrorAs(t, client.Set(ctx, hello, nil), &verr)
	_, err = client.Get(ctx, varP)
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, client.DeleteJSONLD(ctx, &types.ID{ID: "_:b"}))
	require.NoError(t, client.DeleteJSONLD(ctx, &types.ID{ID: "?:x"}))
	require.NoError(t, client.Delete(ctx, types.NewResource("urn:x%20y")))
	require.NoError(t, client.DeleteJSONLD(ctx, nil))

	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, []string{"GET ", "DELETE urn:x%20y", "DELETE "}, requests)
}

// scriptedSocket answers each request on the query socket with the
// next result in order
func scriptedSocket(t *testing.T, results ...string) *httptest.Server {
	upgrader := websocket.Upgrader{Subprotocols: []string{rpc.Subprotocol}}
	return httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(res, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, result := range results {
			var request struct {
				ID uint64 `json:"id"`
			}
			if conn.ReadJSON(&request) != nil {
				return
			}
			response := map[string]interface{}{"jsonrpc": "2.0", "id": request.ID, "result": json.RawMessage(result)}
			if conn.WriteJSON(response) != nil {
				return
			}
		}
	}))
}

func TestQueryScenario(t *testing.T) {
	ts := scriptedSocket(t,
		`[{"kind":"Variable","value":"p"},{"kind":"Variable","value":"o"}]`,
		`[{"kind":"Resource","value":"urn:p"},{"kind":"Literal","value":"hello","language":"","datatype":{"kind":"Resource","value":"http://www.w3.org/2001/XMLSchema#string"}}]`,
		`null`,
	)
	defer ts.Close()

	client := NewClient(hostOf(ts))
	ctx := context.Background()

	pattern := []types.Quad{types.MustQuad(a, varP, varO, nil)}
	cursor, err := client.Query(ctx, pattern, []types.Term{varP, varO}, nil)
	require.NoError(t, err)
	defer cursor.Close()

	delta, err := cursor.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Term]types.Term{varP: p, varO: hello}, delta)

	delta, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, delta)
	assert.True(t, cursor.Done())
}

func TestQueryReferenceServer(t *testing.T) {
	ts := newReferenceServer(t)
	client := NewClient(hostOf(ts))
	ctx := context.Background()

	b := types.NewResource("urn:b")
	require.NoError(t, client.Set(ctx, origin, []types.Quad{
		types.MustQuad(a, p, hello, nil),
		types.MustQuad(a, p, b, nil),
	}))

	pattern := []types.Quad{types.MustQuad(a, varP, varO, nil)}
	cursor, err := client.Query(ctx, pattern, nil, nil)
	require.NoError(t, err)
	defer cursor.Close()
	assert.Equal(t, []types.Term{varP, varO}, cursor.Keys())

	delta, err := cursor.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Term]types.Term{varP: p, varO: b}, delta)

	prov, err := cursor.Prov(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]types.Term{{origin}}, prov)

	delta, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.Term]types.Term{varO: hello}, delta)
	assert.Equal(t, []types.Term{p, hello}, cursor.Values())

	require.NoError(t, cursor.Seek(ctx, nil))
	delta, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, delta, 2)

	delta, err = cursor.NextFrom(ctx, varP)
	require.NoError(t, err)
	assert.Nil(t, delta)
	assert.True(t, cursor.Done())
}

func TestQueryJSONLD(t *testing.T) {
	ts := newReferenceServer(t)
	client := NewClient(hostOf(ts))
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, nil, []types.Quad{types.MustQuad(a, p, hello, nil)}))

	query := map[string]interface{}{"@id": "urn:a", "?:prop": "hello"}
	cursor, err := client.QueryJSONLD(ctx, query, nil, nil)
	require.NoError(t, err)
	defer cursor.Close()

	prop := types.ID{ID: "?:prop"}
	assert.Equal(t, []types.ID{prop}, cursor.Keys())
	delta, err := cursor.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.ID]types.LinkedData{prop: types.ID{ID: "urn:p"}}, delta)

	delta, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, delta)

	// the domain may only name variables of the pattern
	_, err = client.QueryJSONLD(ctx, query, []types.ID{{ID: "?:o"}}, nil)
	var rerr *rpc.Error
	assert.ErrorAs(t, err, &rerr)
}

func TestLower(t *testing.T) {
	client := NewClient("localhost")
	quads, err := client.Lower(map[string]interface{}{
		"@id":     "?:s",
		"urn:p":   "hello",
		"?:other": map[string]interface{}{"@id": "_:b"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []types.Quad{
		types.MustQuad(types.NewVariable("s"), p, hello, nil),
		types.MustQuad(types.NewVariable("s"), types.NewVariable("other"), types.NewBlankNode("b0"), nil),
	}, quads)
}
