package postpulse

import (
	"fmt"
	"hash/fnv"

	"github.com/lumerio/postpulse/vector"
)

// contentHash fingerprints a post by the first 100 characters of its text,
// the date portion of its timestamp and its platform. Near-identical
// re-scrapes of the same post collapse onto one fingerprint.
func contentHash(text, timestamp, platform string) uint64 {
	prefix := []rune(text)
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}

	h := fnv.New64a()
	h.Write([]byte(string(prefix)))
	h.Write([]byte("|"))
	h.Write([]byte(datePortion(timestamp)))
	h.Write([]byte("|"))
	h.Write([]byte(platform))
	return h.Sum64()
}

func datePortion(timestamp string) string {
	if len(timestamp) > 10 {
		return timestamp[:10]
	}
	return timestamp
}

// documentID derives a stable document id. An externally supplied post id is
// preferred; otherwise the content fingerprint stands in. Either way the
// username/date/platform suffix keeps ids unique across accounts, and
// re-ingesting the same source content reproduces the same id.
func documentID(meta vector.Metadata) string {
	date := datePortion(meta.Timestamp)
	if meta.SourceID != "" {
		return fmt.Sprintf("post_%s_%s_%s_%s", meta.SourceID, meta.Username, date, meta.Platform)
	}
	return fmt.Sprintf("post_%x_%s_%s_%s", meta.ContentHash, meta.Username, date, meta.Platform)
}

// dedupIndex answers whether a candidate document duplicates one already in
// the collection. The duplicate decision is deliberately asymmetric:
// competitor corpora are sparse, so competitor documents are only skipped on
// a full id+hash+username+timestamp match, while first-party documents are
// skipped on any id collision with matching timestamp, username and source
// id.
type dedupIndex struct {
	ids            map[string]struct{}
	hashes         map[uint64]struct{}
	competitorKeys map[string]struct{}
	primaryKeys    map[string]struct{}
}

func newDedupIndex(existing []vector.Document) *dedupIndex {
	idx := &dedupIndex{
		ids:            make(map[string]struct{}),
		hashes:         make(map[uint64]struct{}),
		competitorKeys: make(map[string]struct{}),
		primaryKeys:    make(map[string]struct{}),
	}

	for _, doc := range existing {
		meta := doc.Metadata
		idx.ids[doc.ID] = struct{}{}
		idx.hashes[meta.ContentHash] = struct{}{}

		if meta.IsCompetitor {
			key := fmt.Sprintf("%s|%x|%s", meta.Username, meta.ContentHash, meta.Timestamp)
			idx.competitorKeys[key] = struct{}{}
		} else {
			key := fmt.Sprintf("%s|%s|%s", meta.Username, meta.SourceID, meta.Timestamp)
			idx.primaryKeys[key] = struct{}{}
		}
	}

	return idx
}

// filterNew returns the candidates that are not duplicates, preserving order.
func (idx *dedupIndex) filterNew(candidates []vector.Document) []vector.Document {
	fresh := make([]vector.Document, 0, len(candidates))
	for _, doc := range candidates {
		if idx.isDuplicate(doc) {
			continue
		}
		fresh = append(fresh, doc)
	}
	return fresh
}

func (idx *dedupIndex) isDuplicate(doc vector.Document) bool {
	if _, ok := idx.ids[doc.ID]; !ok {
		return false
	}

	meta := doc.Metadata

	if meta.IsCompetitor {
		if _, ok := idx.hashes[meta.ContentHash]; !ok {
			return false
		}
		key := fmt.Sprintf("%s|%x|%s", meta.Username, meta.ContentHash, meta.Timestamp)
		_, ok := idx.competitorKeys[key]
		return ok
	}

	key := fmt.Sprintf("%s|%s|%s", meta.Username, meta.SourceID, meta.Timestamp)
	_, ok := idx.primaryKeys[key]
	return ok
}
