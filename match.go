package postpulse

import (
	"sort"
	"strings"

	"github.com/lumerio/postpulse/vector"
)

// matchRule is one predicate in the ordered competitor-resolution list. Rules
// are evaluated top to bottom per document; the first hit wins.
type matchRule struct {
	name  string
	match func(filter string, meta vector.Metadata) bool
}

// competitorRules resolve a competitor filter against stored metadata. The
// remote store's nearest-neighbor query cannot express these predicates, so
// competitor retrieval scans metadata instead of ranking semantically.
var competitorRules = []matchRule{
	{
		name: "exact_competitor",
		match: func(filter string, meta vector.Metadata) bool {
			return normalizeHandle(meta.Competitor) == filter
		},
	},
	{
		name: "exact_username",
		match: func(filter string, meta vector.Metadata) bool {
			return meta.IsCompetitor && normalizeHandle(meta.Username) == filter
		},
	},
	{
		name: "exact_primary",
		match: func(filter string, meta vector.Metadata) bool {
			return meta.IsCompetitor && normalizeHandle(meta.PrimaryUsername) == filter
		},
	},
	{
		name: "substring",
		match: func(filter string, meta vector.Metadata) bool {
			if !meta.IsCompetitor {
				return false
			}
			for _, handle := range []string{normalizeHandle(meta.Username), normalizeHandle(meta.Competitor)} {
				if handle == "" {
					continue
				}
				if strings.Contains(handle, filter) || strings.Contains(filter, handle) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "flattened",
		match: func(filter string, meta vector.Metadata) bool {
			if !meta.IsCompetitor {
				return false
			}
			flat := flattenHandle(filter)
			return flattenHandle(normalizeHandle(meta.Username)) == flat ||
				flattenHandle(normalizeHandle(meta.Competitor)) == flat
		},
	},
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// flattenHandle drops the separator characters platforms disagree on, so
// "red_bull" and "redbull" compare equal.
func flattenHandle(handle string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return -1
		}
		return r
	}, handle)
}

// matchedDoc pairs a matched document with its synthetic ranking distance.
type matchedDoc struct {
	doc      vector.Document
	distance float64
	rule     string
}

// matchCompetitorDocs scans docs for competitor-filter matches and ranks them
// by a synthetic distance of 1/max(engagement,1), capped at k. Higher
// engagement ranks closer.
func matchCompetitorDocs(docs []vector.Document, filterUsername string, k int) []matchedDoc {
	filter := normalizeHandle(filterUsername)

	matches := make([]matchedDoc, 0)
	for _, doc := range docs {
		for _, rule := range competitorRules {
			if !rule.match(filter, doc.Metadata) {
				continue
			}

			engagement := doc.Metadata.Engagement
			if engagement < 1 {
				engagement = 1
			}

			matches = append(matches, matchedDoc{
				doc:      doc,
				distance: 1 / float64(engagement),
				rule:     rule.name,
			})
			break
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}

	return matches
}

// filterPrimaryDocs post-filters nearest-neighbor candidates for a primary
// query. Primary matching is strict: the document must be first-party and its
// username or primary_username must equal the filter exactly. No substring
// fallback applies here.
func filterPrimaryDocs(docs []vector.Document, distances []float64, filterUsername string) ([]vector.Document, []float64) {
	filter := normalizeHandle(filterUsername)

	kept := make([]vector.Document, 0, len(docs))
	keptDistances := make([]float64, 0, len(docs))

	for i, doc := range docs {
		meta := doc.Metadata
		if meta.IsCompetitor {
			continue
		}
		if normalizeHandle(meta.Username) != filter && normalizeHandle(meta.PrimaryUsername) != filter {
			continue
		}

		kept = append(kept, doc)
		if i < len(distances) {
			keptDistances = append(keptDistances, distances[i])
		} else {
			keptDistances = append(keptDistances, 0)
		}
	}

	return kept, keptDistances
}
