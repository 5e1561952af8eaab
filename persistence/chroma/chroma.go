// Package chroma implements vector.Store against a remote chroma server over
// its HTTP/JSON API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lumerio/postpulse/vector"
)

const apiPrefix = "/api/v1"

func NewStore(cfg vector.Config, dimension int) *Store {
	log := zap.L().With(
		zap.String("store", "chroma"),
		zap.String("collection", cfg.Collection),
	)

	return &Store{
		baseURL:    cfg.URL,
		collection: cfg.Collection,
		dimension:  dimension,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type Store struct {
	baseURL    string
	collection string
	dimension  int
	client     *http.Client
	log        *zap.Logger

	// collectionID caches the remote collection id between calls. It is
	// dropped whenever the remote reports the collection missing.
	collectionID string
}

type collectionModel struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Store) Health(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, apiPrefix+"/heartbeat", nil, nil)
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	var col collectionModel

	err := s.do(ctx, http.MethodGet, apiPrefix+"/collections/"+s.collection, nil, &col)
	if err == nil {
		s.collectionID = col.ID
		return nil
	}

	if !isMissing(err) {
		return err
	}

	body := map[string]any{
		"name": s.collection,
		"metadata": map[string]any{
			"hnsw:space": "cosine",
		},
	}

	if err := s.do(ctx, http.MethodPost, apiPrefix+"/collections", body, &col); err != nil {
		return err
	}

	s.collectionID = col.ID
	s.log.Info("collection created", zap.String("id", col.ID))
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.do(ctx, http.MethodGet, apiPrefix+"/collections/"+id+"/count", nil, &count); err != nil {
		return 0, err
	}

	return count, nil
}

func (s *Store) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	id, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(docs))
	documents := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	metadatas := make([]map[string]string, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		documents[i] = doc.Content
		embeddings[i] = doc.Embedding
		metadatas[i] = doc.Metadata.Map()
	}

	body := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}

	return s.do(ctx, http.MethodPost, apiPrefix+"/collections/"+id+"/upsert", body, nil)
}

type getResponse struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
}

func (s *Store) Get(ctx context.Context, filter vector.Filter) ([]vector.Document, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"include": []string{"documents", "metadatas"},
	}
	if len(filter) > 0 {
		where := make(map[string]any, len(filter))
		for k, v := range filter {
			where[k] = v
		}
		body["where"] = where
	}

	var resp getResponse
	if err := s.do(ctx, http.MethodPost, apiPrefix+"/collections/"+id+"/get", body, &resp); err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, docID := range resp.IDs {
		docs[i] = vector.Document{ID: docID}
		if i < len(resp.Documents) {
			docs[i].Content = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = vector.MetadataFromMap(resp.Metadatas[i])
		}
	}

	return docs, nil
}

type queryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vector.Document, []float64, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, nil, err
	}

	body := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var resp queryResponse
	if err := s.do(ctx, http.MethodPost, apiPrefix+"/collections/"+id+"/query", body, &resp); err != nil {
		return nil, nil, err
	}

	if len(resp.IDs) == 0 {
		return nil, nil, nil
	}

	docs := make([]vector.Document, len(resp.IDs[0]))
	distances := make([]float64, len(resp.IDs[0]))

	for i, docID := range resp.IDs[0] {
		docs[i] = vector.Document{ID: docID}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			docs[i].Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			docs[i].Metadata = vector.MetadataFromMap(resp.Metadatas[0][i])
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			distances[i] = resp.Distances[0][i]
		}
	}

	return docs, distances, nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, apiPrefix+"/collections/"+s.collection, nil, nil)
	if err != nil && !isMissing(err) {
		return err
	}

	s.collectionID = ""
	return s.EnsureCollection(ctx)
}

func (s *Store) resolveCollection(ctx context.Context) (string, error) {
	if s.collectionID != "" {
		return s.collectionID, nil
	}

	var col collectionModel
	if err := s.do(ctx, http.MethodGet, apiPrefix+"/collections/"+s.collection, nil, &col); err != nil {
		return "", err
	}

	s.collectionID = col.ID
	return col.ID, nil
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", vector.ErrStoreUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The collection id cache is stale once the remote reports a miss.
		s.collectionID = ""
		return vector.ErrCollectionMissing

	case resp.StatusCode >= 400:
		return fmt.Errorf("chroma: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

var _ vector.Store = (*Store)(nil)

func isMissing(err error) bool {
	return errors.Is(err, vector.ErrCollectionMissing)
}
