package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumerio/postpulse/vector"
)

// fakeChroma serves just enough of the chroma HTTP API for the client tests.
type fakeChroma struct {
	created bool
	creates int
	deleted bool

	docs map[string]vector.Document
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{
		docs: make(map[string]vector.Document),
	}
}

func (f *fakeChroma) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})

	mux.HandleFunc("GET /api/v1/collections/posts", func(w http.ResponseWriter, r *http.Request) {
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "posts"})
	})

	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		f.created = true
		f.creates++
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "posts"})
	})

	mux.HandleFunc("DELETE /api/v1/collections/posts", func(w http.ResponseWriter, r *http.Request) {
		f.created = false
		f.deleted = true
		f.docs = make(map[string]vector.Document)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/v1/collections/col-1/count", func(w http.ResponseWriter, r *http.Request) {
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(len(f.docs))
	})

	mux.HandleFunc("POST /api/v1/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var body struct {
			IDs        []string            `json:"ids"`
			Documents  []string            `json:"documents"`
			Embeddings [][]float32         `json:"embeddings"`
			Metadatas  []map[string]string `json:"metadatas"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		for i, id := range body.IDs {
			f.docs[id] = vector.Document{
				ID:        id,
				Content:   body.Documents[i],
				Embedding: body.Embeddings[i],
				Metadata:  vector.MetadataFromMap(body.Metadatas[i]),
			}
		}

		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/v1/collections/col-1/get", func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			IDs       []string            `json:"ids"`
			Documents []string            `json:"documents"`
			Metadatas []map[string]string `json:"metadatas"`
		}{}

		for id, doc := range f.docs {
			resp.IDs = append(resp.IDs, id)
			resp.Documents = append(resp.Documents, doc.Content)
			resp.Metadatas = append(resp.Metadatas, doc.Metadata.Map())
		}

		json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func newTestStore(t *testing.T, fake *fakeChroma) *Store {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	return NewStore(vector.Config{
		URL:        server.URL,
		Collection: "posts",
	}, 4)
}

func TestHealth(t *testing.T) {
	assert := assert.New(t)

	store := newTestStore(t, newFakeChroma())
	assert.NoError(store.Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	assert := assert.New(t)

	store := NewStore(vector.Config{
		URL:        "http://127.0.0.1:1",
		Collection: "posts",
	}, 4)

	err := store.Health(context.Background())
	assert.ErrorIs(err, vector.ErrStoreUnavailable)
}

func TestEnsureCollectionCreates(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	fake := newFakeChroma()
	store := newTestStore(t, fake)

	assert.NoError(store.EnsureCollection(ctx))
	assert.True(fake.created)
	assert.Equal(1, fake.creates)

	// A second call resolves the existing collection without recreating.
	assert.NoError(store.EnsureCollection(ctx))
	assert.Equal(1, fake.creates)
}

func TestCountMissingCollection(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	fake := newFakeChroma()
	store := newTestStore(t, fake)

	assert.NoError(store.EnsureCollection(ctx))

	// Someone deletes the collection behind the client's back. The cached
	// id goes stale and the next call must surface a missing collection.
	fake.created = false

	_, err := store.Count(ctx)
	assert.ErrorIs(err, vector.ErrCollectionMissing)
}

func TestUpsertAndGet(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	fake := newFakeChroma()
	store := newTestStore(t, fake)

	assert.NoError(store.EnsureCollection(ctx))

	docs := []vector.Document{
		{
			ID:        "post_1",
			Content:   "new drop this friday",
			Embedding: []float32{0.1, 0.2, 0.3, 0.4},
			Metadata: vector.Metadata{
				Username:   "glowbrand",
				Platform:   "instagram",
				Engagement: 120,
				Timestamp:  "2026-06-01T10:00:00Z",
			},
		},
	}

	assert.NoError(store.Upsert(ctx, docs))

	count, err := store.Count(ctx)
	assert.NoError(err)
	assert.Equal(1, count)

	got, err := store.Get(ctx, nil)
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal("post_1", got[0].ID)
	assert.Equal("glowbrand", got[0].Metadata.Username)
	assert.Equal(uint(120), got[0].Metadata.Engagement)
}

func TestClearRecreates(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	fake := newFakeChroma()
	store := newTestStore(t, fake)

	assert.NoError(store.EnsureCollection(ctx))
	assert.NoError(store.Upsert(ctx, []vector.Document{{
		ID:        "post_1",
		Content:   "old content",
		Embedding: []float32{1, 0, 0, 0},
	}}))

	assert.NoError(store.Clear(ctx))
	assert.True(fake.deleted)
	assert.True(fake.created, "clear must recreate the collection")

	count, err := store.Count(ctx)
	assert.NoError(err)
	assert.Zero(count)
}
