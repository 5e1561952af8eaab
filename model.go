package postpulse

import (
	"errors"
	"strings"
	"time"

	"github.com/lumerio/postpulse/embedding"
	"github.com/lumerio/postpulse/retry"
	"github.com/lumerio/postpulse/vector"
)

var (
	ErrStoreUnhealthy    = errors.New("vector store is unreachable")
	ErrEmptyText         = errors.New("post has no usable text")
	ErrInvalidTimestamp  = errors.New("post timestamp is unparsable")
	ErrUnsupportedStore  = errors.New("unsupported store backend")
	ErrInvalidCollection = errors.New("collection name is required")
)

type Config struct {
	Vector       vector.Config   `yaml:"vector"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Retry        RetryConfig     `yaml:"retry"`
	BatchSize    int             `yaml:"batchSize"`
	ResetOnStart bool            `yaml:"resetOnStart"`
}

type EmbeddingConfig struct {
	Dimension int `yaml:"dimension"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
}

// DefaultBatchSize bounds a single upsert request against the remote store.
const DefaultBatchSize = 25

func (cfg *Config) applyDefaults() error {
	if cfg.Vector.Collection == "" {
		return ErrInvalidCollection
	}

	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = embedding.DefaultDimension
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = retry.DefaultAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return nil
}

// RawPost is a scraped post as delivered by the ingestion collaborators.
// Platforms disagree on field names, so text and engagement are read through
// ordered fallback chains.
type RawPost struct {
	ID         string   `json:"id"`
	Caption    string   `json:"caption"`
	Text       string   `json:"text"`
	Content    string   `json:"content"`
	Message    string   `json:"message"`
	Username   string   `json:"username"`
	Platform   string   `json:"platform"`
	Timestamp  string   `json:"timestamp"`
	Engagement uint     `json:"engagement"`
	Likes      uint     `json:"likes"`
	Comments   uint     `json:"comments"`
	Shares     uint     `json:"shares"`
	Hashtags   []string `json:"hashtags"`
}

// BodyText returns the first non-empty text field: caption, text, content,
// message.
func (p RawPost) BodyText() string {
	for _, candidate := range []string{p.Caption, p.Text, p.Content, p.Message} {
		if text := strings.TrimSpace(candidate); text != "" {
			return text
		}
	}
	return ""
}

// EngagementScore returns the aggregate engagement metric, summing the
// platform sub-metrics when no aggregate was scraped.
func (p RawPost) EngagementScore() uint {
	if p.Engagement > 0 {
		return p.Engagement
	}
	return p.Likes + p.Comments + p.Shares
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// PostToDocument validates a raw post and turns it into a store document.
// Posts without text or with an unparsable timestamp are rejected; the caller
// drops them and continues with the rest of the batch.
func PostToDocument(post RawPost, primaryUsername string, isCompetitor bool) (vector.Document, error) {
	text := post.BodyText()
	if text == "" {
		return vector.Document{}, ErrEmptyText
	}

	ts, err := parseTimestamp(post.Timestamp)
	if err != nil {
		return vector.Document{}, err
	}

	username := strings.TrimSpace(post.Username)
	if username == "" {
		username = primaryUsername
	}

	meta := vector.Metadata{
		Username:        username,
		PrimaryUsername: primaryUsername,
		IsCompetitor:    isCompetitor,
		Platform:        post.Platform,
		Engagement:      post.EngagementScore(),
		Likes:           post.Likes,
		Comments:        post.Comments,
		Shares:          post.Shares,
		Timestamp:       ts.UTC().Format(time.RFC3339),
		SourceID:        strings.TrimSpace(post.ID),
		Hashtags:        strings.Join(post.Hashtags, " "),
	}

	meta.ContentHash = contentHash(text, meta.Timestamp, meta.Platform)
	meta.Normalize()

	return vector.Document{
		ID:       documentID(meta),
		Content:  text,
		Metadata: meta,
	}, nil
}
