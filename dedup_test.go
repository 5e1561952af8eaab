package postpulse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumerio/postpulse/vector"
)

func TestContentHashStable(t *testing.T) {
	assert := assert.New(t)

	a := contentHash("summer sale starts now", "2026-06-01T10:00:00Z", "instagram")
	b := contentHash("summer sale starts now", "2026-06-01T10:00:00Z", "instagram")
	assert.Equal(a, b)

	assert.NotEqual(a, contentHash("summer sale starts now", "2026-06-02T10:00:00Z", "instagram"))
	assert.NotEqual(a, contentHash("summer sale starts now", "2026-06-01T10:00:00Z", "tiktok"))
}

func TestContentHashIgnoresTimeOfDay(t *testing.T) {
	assert := assert.New(t)

	morning := contentHash("flash sale today only", "2026-06-01T08:00:00Z", "instagram")
	evening := contentHash("flash sale today only", "2026-06-01T20:30:00Z", "instagram")

	assert.Equal(morning, evening, "re-scrapes on the same day should collapse")
}

func TestContentHashPrefixOnly(t *testing.T) {
	assert := assert.New(t)

	prefix := ""
	for i := 0; i < 100; i++ {
		prefix += "x"
	}

	a := contentHash(prefix+" tail one", "2026-06-01", "instagram")
	b := contentHash(prefix+" tail two", "2026-06-01", "instagram")

	assert.Equal(a, b, "text past 100 characters should not change the hash")
}

func TestDocumentID(t *testing.T) {
	assert := assert.New(t)

	meta := vector.Metadata{
		Username:  "glowbrand",
		Platform:  "instagram",
		Timestamp: "2026-06-01T10:00:00Z",
		SourceID:  "abc123",
	}

	assert.Equal("post_abc123_glowbrand_2026-06-01_instagram", documentID(meta))

	meta.SourceID = ""
	meta.ContentHash = 0xdeadbeef
	assert.Equal("post_deadbeef_glowbrand_2026-06-01_instagram", documentID(meta))
}

func competitorDoc(text, username, timestamp string) vector.Document {
	meta := vector.Metadata{
		Username:     username,
		Competitor:   username,
		IsCompetitor: true,
		Platform:     "instagram",
		Timestamp:    timestamp,
	}
	meta.ContentHash = contentHash(text, timestamp, meta.Platform)

	return vector.Document{
		ID:       documentID(meta),
		Content:  text,
		Metadata: meta,
	}
}

func primaryDoc(text, username, sourceID, timestamp string) vector.Document {
	meta := vector.Metadata{
		Username:  username,
		Platform:  "instagram",
		Timestamp: timestamp,
		SourceID:  sourceID,
	}
	meta.ContentHash = contentHash(text, timestamp, meta.Platform)

	return vector.Document{
		ID:       documentID(meta),
		Content:  text,
		Metadata: meta,
	}
}

func TestFilterNewPrimaryDuplicates(t *testing.T) {
	assert := assert.New(t)

	existing := primaryDoc("our new serum is here", "glowbrand", "p1", "2026-06-01T10:00:00Z")
	idx := newDedupIndex([]vector.Document{existing})

	dup := primaryDoc("our new serum is here", "glowbrand", "p1", "2026-06-01T10:00:00Z")
	fresh := primaryDoc("restock alert tomorrow", "glowbrand", "p2", "2026-06-02T10:00:00Z")

	kept := idx.filterNew([]vector.Document{dup, fresh})
	assert.Len(kept, 1)
	assert.Equal(fresh.ID, kept[0].ID)
}

func TestFilterNewCompetitorPermissive(t *testing.T) {
	assert := assert.New(t)

	existing := competitorDoc("big announcement coming", "rivalbrand", "2026-06-01T10:00:00Z")
	idx := newDedupIndex([]vector.Document{existing})

	// Same content, same day, different time of day. The id and content
	// hash collide but the full competitor key does not, so the document
	// is kept.
	rescrape := competitorDoc("big announcement coming", "rivalbrand", "2026-06-01T14:00:00Z")
	assert.Equal(existing.ID, rescrape.ID)

	kept := idx.filterNew([]vector.Document{rescrape})
	assert.Len(kept, 1)

	// An exact re-scrape is skipped.
	exact := competitorDoc("big announcement coming", "rivalbrand", "2026-06-01T10:00:00Z")
	assert.Empty(idx.filterNew([]vector.Document{exact}))
}

func TestFilterNewPreservesOrder(t *testing.T) {
	assert := assert.New(t)

	idx := newDedupIndex(nil)

	docs := []vector.Document{
		primaryDoc("first post", "glowbrand", "p1", "2026-06-01T10:00:00Z"),
		primaryDoc("second post", "glowbrand", "p2", "2026-06-01T11:00:00Z"),
		primaryDoc("third post", "glowbrand", "p3", "2026-06-01T12:00:00Z"),
	}

	kept := idx.filterNew(docs)
	assert.Len(kept, 3)

	for i := range docs {
		assert.Equal(docs[i].ID, kept[i].ID)
	}
}
