// Package chromem implements vector.Store on an embedded chromem-go
// database. It is the fallback backend selected by configuration when no
// remote chroma server is available; it never shares state with the remote
// store.
package chromem

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/lumerio/postpulse/vector"
)

var errExternalEmbeddings = errors.New("documents must carry precomputed embeddings")

func NewStore(cfg vector.Config) (*Store, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	log := zap.L().With(
		zap.String("store", "chromem"),
		zap.String("collection", cfg.Collection),
	)

	s := &Store{
		db:         db,
		collection: cfg.Collection,
		docs:       make(map[string]vector.Document),
		log:        log,
	}

	return s, nil
}

// Store is an embedded chromem-go database behind the vector.Store interface.
// Get enumerates only documents written during the current process lifetime;
// in persistent mode, documents from earlier runs are queryable but not
// scannable.
type Store struct {
	db         *chromem.DB
	collection string
	col        *chromem.Collection

	// docs mirrors what this process has written, because chromem exposes no
	// bulk listing. Metadata scans cover documents indexed in this process
	// lifetime.
	docs map[string]vector.Document

	log *zap.Logger
}

// rejectEmbedding stands in for chromem's default embedding function. All
// embeddings are computed upstream, so reaching it means a caller forgot to
// attach one.
func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errExternalEmbeddings
}

func (s *Store) Health(ctx context.Context) error {
	// The embedded database is always reachable once constructed.
	return nil
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	col, err := s.db.GetOrCreateCollection(s.collection, nil, rejectEmbedding)
	if err != nil {
		return err
	}

	s.col = col
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.col == nil {
		return 0, vector.ErrCollectionMissing
	}
	return s.col.Count(), nil
}

func (s *Store) Upsert(ctx context.Context, docs []vector.Document) error {
	if s.col == nil {
		return vector.ErrCollectionMissing
	}

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s: %w", doc.ID, errExternalEmbeddings)
		}

		document := chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata.Map(),
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}

		// AddDocument overwrites an existing id, which gives upsert
		// semantics.
		if err := s.col.AddDocument(ctx, document); err != nil {
			return err
		}

		s.docs[doc.ID] = doc
	}

	return nil
}

func (s *Store) Get(ctx context.Context, filter vector.Filter) ([]vector.Document, error) {
	if s.col == nil {
		return nil, vector.ErrCollectionMissing
	}

	docs := make([]vector.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if matchesFilter(doc.Metadata.Map(), filter) {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func matchesFilter(meta map[string]string, filter vector.Filter) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vector.Document, []float64, error) {
	if s.col == nil {
		return nil, nil, vector.ErrCollectionMissing
	}

	if count := s.col.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil, nil
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, nil, err
	}

	docs := make([]vector.Document, len(results))
	distances := make([]float64, len(results))

	for i, result := range results {
		docs[i] = vector.Document{
			ID:        result.ID,
			Content:   result.Content,
			Embedding: result.Embedding,
			Metadata:  vector.MetadataFromMap(result.Metadata),
		}

		// chromem reports cosine similarity; callers expect distance.
		distances[i] = 1 - float64(result.Similarity)
	}

	return docs, distances, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.collection); err != nil {
		return err
	}

	s.col = nil
	s.docs = make(map[string]vector.Document)

	return s.EnsureCollection(ctx)
}

var _ vector.Store = (*Store)(nil)
