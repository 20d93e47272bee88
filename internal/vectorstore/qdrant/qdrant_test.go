package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipeline/internal/domain"
)

// fakeQdrant serves the handful of endpoints Storage uses.
type fakeQdrant struct {
	mu      sync.Mutex
	size    int
	points  []map[string]any
	created int
	apiKeys []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
		if f.size == 0 {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"result": map[string]any{"config": map[string]any{
			"params": map[string]any{"vectors": map[string]any{"size": f.size}},
		}}})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.size = body.Vectors.Size
		f.created++
		writeJSON(w, map[string]any{"result": true})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
		if f.size == 0 {
			http.NotFound(w, r)
			return
		}
		hits := make([]map[string]any, 0, len(f.points))
		for i, p := range f.points {
			hits = append(hits, map[string]any{"score": 1.0 - float64(i)*0.1, "payload": p["payload"]})
		}
		writeJSON(w, map[string]any{"result": hits})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/count":
		if f.size == 0 {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"result": map[string]any{"count": len(f.points)}})
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/docs":
		f.size = 0
		f.points = nil
		writeJSON(w, map[string]any{"result": true})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})
	t.Cleanup(func() { _ = s.Close() })
	return s, fake
}

func TestStorage_UpsertCreatesCollectionAndSearches(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)

	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "chunk-a", Content: "Neil Armstrong", Metadata: map[string]any{"_source": "moon.txt"}, Vector: []float64{1, 0, 0}},
		{ID: "chunk-b", Content: "Buzz Aldrin", Vector: []float64{0, 1, 0}},
	}))
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, 3, fake.size)

	res, err := s.Search(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "chunk-a", res[0].Record.ID)
	assert.Equal(t, "Neil Armstrong", res[0].Record.Content)
	assert.Equal(t, "moon.txt", res[0].Record.Metadata["_source"])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestStorage_RejectsDimensionChange(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1, 0}}}))
	err := s.Upsert(ctx, []domain.Record{{ID: "b", Vector: []float64{1, 0, 0}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStorage_MissingCollectionIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := s.Search(ctx, []float64{1}, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStorage_ClearDropsCollection(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1, 0}}}))
	require.NoError(t, s.Clear(ctx))
	assert.Zero(t, fake.size)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1, 0, 0}}}))
	assert.Equal(t, 2, fake.created)
}

func TestPointID(t *testing.T) {
	u := uuid.NewString()
	assert.Equal(t, u, pointID(u))
	assert.Equal(t, pointID("chunk-a"), pointID("chunk-a"))
	_, err := uuid.Parse(pointID("chunk-a"))
	assert.NoError(t, err)
}
