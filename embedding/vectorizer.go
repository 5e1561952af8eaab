package embedding

import (
	"math"
	"sort"
	"strings"
)

// vectorizer is a TF-IDF model with a frozen vocabulary. fit is a one-way
// transition; transform on an untrained vectorizer returns empty features.
type vectorizer struct {
	trained bool
	vocab   map[string]int
	idf     []float64
}

func newVectorizer() *vectorizer {
	return &vectorizer{
		vocab: make(map[string]int),
	}
}

// fit builds the vocabulary and document frequencies from docs. Feature
// indexes follow sorted token order so truncation to the output dimension is
// the same on every call.
func (v *vectorizer) fit(docs []string) {
	if v.trained {
		return
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, token := range strings.Fields(doc) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			df[token]++
		}
	}

	tokens := make([]string, 0, len(df))
	for token := range df {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	v.idf = make([]float64, len(tokens))
	for i, token := range tokens {
		v.vocab[token] = i
		v.idf[i] = math.Log(float64(1+len(docs))/float64(1+df[token])) + 1
	}

	v.trained = true
}

// transform maps a document onto the frozen vocabulary. Tokens outside the
// vocabulary are ignored.
func (v *vectorizer) transform(doc string) []float64 {
	features := make([]float64, len(v.idf))
	if !v.trained {
		return features
	}

	for _, token := range strings.Fields(doc) {
		if i, ok := v.vocab[token]; ok {
			features[i] += v.idf[i]
		}
	}

	return features
}
