package postpulse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumerio/postpulse/vector"
)

func matchDoc(username, competitor string, isCompetitor bool, engagement uint) vector.Document {
	return vector.Document{
		ID:      "post_" + username,
		Content: "content by " + username,
		Metadata: vector.Metadata{
			Username:     username,
			Competitor:   competitor,
			IsCompetitor: isCompetitor,
			Engagement:   engagement,
		},
	}
}

func TestMatchCompetitorExact(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		matchDoc("rivalbrand", "rivalbrand", true, 100),
		matchDoc("otherbrand", "otherbrand", true, 500),
		matchDoc("glowbrand", "", false, 900),
	}

	matches := matchCompetitorDocs(docs, "RivalBrand", 5)
	assert.Len(matches, 1)
	assert.Equal("rivalbrand", matches[0].doc.Metadata.Username)
	assert.Equal("exact_competitor", matches[0].rule)
}

func TestMatchCompetitorFlattenedHandles(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		matchDoc("red_bull", "", true, 100),
	}

	matches := matchCompetitorDocs(docs, "redbull", 5)
	assert.Len(matches, 1)
	assert.Equal("flattened", matches[0].rule)

	// And the other direction.
	docs = []vector.Document{
		matchDoc("redbull", "", true, 100),
	}

	matches = matchCompetitorDocs(docs, "red-bull", 5)
	assert.Len(matches, 1)
	assert.Equal("flattened", matches[0].rule)
}

func TestMatchCompetitorSubstring(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		matchDoc("rivalbrand_official", "", true, 100),
	}

	matches := matchCompetitorDocs(docs, "rivalbrand", 5)
	assert.Len(matches, 1)
	assert.Equal("substring", matches[0].rule)
}

func TestMatchCompetitorRanksByEngagement(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		matchDoc("rivalbrand", "rivalbrand", true, 10),
		matchDoc("rivalbrand", "rivalbrand", true, 1000),
		matchDoc("rivalbrand", "rivalbrand", true, 0),
	}
	docs[1].ID = "post_rivalbrand_2"
	docs[2].ID = "post_rivalbrand_3"

	matches := matchCompetitorDocs(docs, "rivalbrand", 5)
	assert.Len(matches, 3)

	assert.InDelta(0.001, matches[0].distance, 1e-9)
	assert.InDelta(0.1, matches[1].distance, 1e-9)
	assert.InDelta(1.0, matches[2].distance, 1e-9, "zero engagement clamps to 1")
}

func TestMatchCompetitorCapped(t *testing.T) {
	assert := assert.New(t)

	docs := make([]vector.Document, 10)
	for i := range docs {
		docs[i] = matchDoc("rivalbrand", "rivalbrand", true, uint(i+1))
	}

	matches := matchCompetitorDocs(docs, "rivalbrand", 3)
	assert.Len(matches, 3)
}

func TestMatchCompetitorSkipsFirstParty(t *testing.T) {
	assert := assert.New(t)

	// A first-party document whose username happens to contain the filter
	// must not surface through the substring rule.
	docs := []vector.Document{
		matchDoc("rivalbrand_fanpage", "", false, 100),
	}

	assert.Empty(matchCompetitorDocs(docs, "rivalbrand", 5))
}

func TestFilterPrimaryStrict(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		matchDoc("glowbrand", "", false, 100),
		matchDoc("glowbrand_official", "", false, 100),
		matchDoc("glowbrand", "glowbrand", true, 100),
	}
	distances := []float64{0.1, 0.2, 0.3}

	kept, keptDistances := filterPrimaryDocs(docs, distances, "glowbrand")

	assert.Len(kept, 1)
	assert.Equal("glowbrand", kept[0].Metadata.Username)
	assert.False(kept[0].Metadata.IsCompetitor)
	assert.Equal([]float64{0.1}, keptDistances)
}

func TestFilterPrimaryMatchesPrimaryUsername(t *testing.T) {
	assert := assert.New(t)

	doc := matchDoc("some_alias", "", false, 100)
	doc.Metadata.PrimaryUsername = "glowbrand"

	kept, _ := filterPrimaryDocs([]vector.Document{doc}, []float64{0.4}, "glowbrand")
	assert.Len(kept, 1)
}

func TestFlattenHandle(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("redbull", flattenHandle("red_bull"))
	assert.Equal("redbull", flattenHandle("red-bull"))
	assert.Equal("redbull", flattenHandle("redbull"))
}
