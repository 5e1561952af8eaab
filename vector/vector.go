package vector

import (
	"context"
	"errors"
)

var (
	ErrCollectionMissing = errors.New("collection missing")
	ErrStoreUnavailable  = errors.New("vector store unavailable")
)

type Config struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Store abstracts the backing vector store. The remote chroma client and the
// embedded chromem store both implement it; they are selected by configuration
// and never share state.
type Store interface {
	// Health probes the store. An unhealthy store at startup is fatal.
	Health(ctx context.Context) error

	// EnsureCollection fetches the configured collection, creating it with a
	// cosine similarity metric when it does not exist.
	EnsureCollection(ctx context.Context) error

	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, docs []Document) error

	// Get returns stored documents, optionally restricted to exact metadata
	// matches given in filter.
	Get(ctx context.Context, filter Filter) ([]Document, error)

	// Query runs a nearest-neighbor search and returns documents with their
	// cosine distances, closest first.
	Query(ctx context.Context, embedding []float32, k int) ([]Document, []float64, error)

	// Clear deletes and recreates the collection.
	Clear(ctx context.Context) error
}

// Filter restricts Get to documents whose metadata matches every entry.
type Filter map[string]string

type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

type Metadata struct {
	Username        string `json:"username"`
	PrimaryUsername string `json:"primary_username"`
	Competitor      string `json:"competitor,omitempty"`
	IsCompetitor    bool   `json:"is_competitor"`
	Platform        string `json:"platform"`
	Engagement      uint   `json:"engagement"`
	Likes           uint   `json:"likes,omitempty"`
	Comments        uint   `json:"comments,omitempty"`
	Shares          uint   `json:"shares,omitempty"`
	Timestamp       string `json:"timestamp"`
	SourceID        string `json:"source_id,omitempty"`
	ContentHash     uint64 `json:"content_hash,string"`
	Hashtags        string `json:"hashtags,omitempty"`
}

// Normalize backfills missing fields so stored metadata always satisfies the
// collection invariants: engagement is at least 1, and competitor documents
// carry their username in the competitor field.
func (m *Metadata) Normalize() {
	if m.Engagement == 0 {
		m.Engagement = m.Likes + m.Comments + m.Shares
	}
	if m.Engagement == 0 {
		m.Engagement = 1
	}

	if m.IsCompetitor && m.Competitor == "" {
		m.Competitor = m.Username
	}

	if !m.IsCompetitor {
		m.Competitor = ""
	}
}
