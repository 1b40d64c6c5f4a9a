package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchat/internal/retry"
)

// fakeQdrant records requests and serves canned responses per path.
type fakeQdrant struct {
	mu        sync.Mutex
	calls     []string
	bodies    map[string]map[string]any
	apiKeys   []string
	exists    bool
	responses map[string][]string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{bodies: map[string]map[string]any{}, responses: map[string][]string{}}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, key)
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies[key] = body

	switch {
	case key == "GET /collections/docs" && !f.exists:
		w.WriteHeader(http.StatusNotFound)
		return
	case key == "PUT /collections/docs":
		f.exists = true
	}

	if queue := f.responses[key]; len(queue) > 0 {
		f.responses[key] = queue[1:]
		w.Write([]byte(queue[0]))
		return
	}
	w.Write([]byte(`{"result":{}}`))
}

func newTestQdrant(t *testing.T, f http.Handler) *Qdrant {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewQdrant(QdrantConfig{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"})
}

func TestQdrant_InsertCreatesCollectionOnce(t *testing.T) {
	f := newFakeQdrant()
	q := newTestQdrant(t, f)
	ctx := context.Background()

	require.NoError(t, q.InsertBatch(ctx, []Record{rec("a.pdf:0:0", "a.pdf", 1, 0)}))
	require.NoError(t, q.InsertBatch(ctx, []Record{rec("a.pdf:0:1", "a.pdf", 0, 1)}))

	assert.Equal(t, []string{
		"GET /collections/docs",
		"PUT /collections/docs",
		"PUT /collections/docs/points",
		"PUT /collections/docs/points",
	}, f.calls)
	for _, k := range f.apiKeys {
		assert.Equal(t, "secret", k)
	}

	create := f.bodies["PUT /collections/docs"]["vectors"].(map[string]any)
	assert.Equal(t, float64(2), create["size"])
	assert.Equal(t, "Cosine", create["distance"])

	points := f.bodies["PUT /collections/docs/points"]["points"].([]any)
	point := points[0].(map[string]any)
	assert.Equal(t, PointID("a.pdf:0:1"), point["id"])
	assert.Equal(t, "a.pdf:0:1", point["payload"].(map[string]any)["chunk_id"])
}

func TestQdrant_ListIDsFollowsPages(t *testing.T) {
	f := newFakeQdrant()
	f.responses["POST /collections/docs/points/scroll"] = []string{
		`{"result":{"points":[{"payload":{"chunk_id":"a:0:0"}},{"payload":{"chunk_id":"a:0:1"}}],"next_page_offset":"abc"}}`,
		`{"result":{"points":[{"payload":{"chunk_id":"b:0:0"}}],"next_page_offset":null}}`,
	}
	q := newTestQdrant(t, f)

	ids, err := q.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a:0:0", "a:0:1", "b:0:0"}, ids)
	assert.Equal(t, "abc", f.bodies["POST /collections/docs/points/scroll"]["offset"])
}

func TestQdrant_MissingCollectionIsEmpty(t *testing.T) {
	q := newTestQdrant(t, http.NotFoundHandler())
	ctx := context.Background()

	ids, err := q.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	results, err := q.SimilaritySearch(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err := q.DeleteSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, q.Reset(ctx))
}

func TestQdrant_SearchMapsPayload(t *testing.T) {
	f := newFakeQdrant()
	f.responses["POST /collections/docs/points/search"] = []string{
		`{"result":[{"score":0.9,"payload":{"chunk_id":"a.pdf:2:0","source":"a.pdf","page":2,"chunk_index":0,"text":"hello"}}]}`,
	}
	q := newTestQdrant(t, f)

	results, err := q.SimilaritySearch(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.pdf:2:0", results[0].ID)
	assert.Equal(t, 2, results[0].Page)
	assert.Equal(t, "hello", results[0].Text)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.Equal(t, float64(3), f.bodies["POST /collections/docs/points/search"]["limit"])
}

func TestQdrant_DeleteSourceCountsThenDeletes(t *testing.T) {
	f := newFakeQdrant()
	f.responses["POST /collections/docs/points/count"] = []string{`{"result":{"count":4}}`}
	q := newTestQdrant(t, f)

	n, err := q.DeleteSource(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{
		"POST /collections/docs/points/count",
		"POST /collections/docs/points/delete",
	}, f.calls)
}

func TestQdrant_ServerErrorIsRetryable(t *testing.T) {
	q := newTestQdrant(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	_, err := q.SimilaritySearch(context.Background(), []float32{1}, 1)
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestQdrant_ClientErrorIsPermanent(t *testing.T) {
	q := newTestQdrant(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad vector", http.StatusBadRequest)
	}))

	_, err := q.SimilaritySearch(context.Background(), []float32{1}, 1)
	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("a.pdf:0:0"), PointID("a.pdf:0:0"))
	assert.NotEqual(t, PointID("a.pdf:0:0"), PointID("a.pdf:0:1"))
}
