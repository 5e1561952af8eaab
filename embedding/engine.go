// Package embedding converts post text into fixed-dimension vectors for
// similarity search. The vectorizer follows a one-way Untrained -> Trained
// lifecycle: the first batch that reaches the engine freezes the vocabulary,
// and every later call reuses it until Reset.
package embedding

import (
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DefaultDimension matches the dimension the collection is created with.
const DefaultDimension = 384

// minFitDocs is the smallest batch the vectorizer is fit on without
// stabilization. Smaller first batches are supplemented with seed sentences
// so the frozen vocabulary is not dominated by a handful of posts.
const minFitDocs = 5

var seedSentences = []string{
	"new product launch announcement for our followers",
	"behind the scenes look at the creative process",
	"limited time offer on our best selling collection",
	"customer favorites and trending styles this season",
	"tips and tutorials from our community creators",
}

var fillerTokens = []string{"social", "media", "post"}

var (
	urlPattern     = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

type Engine struct {
	dim int
	vec *vectorizer
	log *zap.Logger
}

func NewEngine(dim int) *Engine {
	if dim <= 0 {
		dim = DefaultDimension
	}

	log := zap.L().With(
		zap.String("component", "embedding"),
	)

	return &Engine{
		dim: dim,
		vec: newVectorizer(),
		log: log,
	}
}

func (e *Engine) Dimension() int {
	return e.dim
}

// Trained reports whether the vocabulary has been frozen.
func (e *Engine) Trained() bool {
	return e.vec.trained
}

// Reset discards the frozen vocabulary, reverting the engine to untrained.
func (e *Engine) Reset() {
	e.vec = newVectorizer()
	e.log.Info("vectorizer reset")
}

// Embed returns one vector of length Dimension per input text, in input
// order. Every vector is L2-normalized; a zero-norm vector stays zero. Embed
// never fails: degenerate input yields zero vectors so callers proceed with
// degraded recall.
func (e *Engine) Embed(texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, e.dim)
	}

	if len(texts) == 0 {
		return vectors
	}

	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = padDegenerate(cleanText(text))
	}

	if !e.vec.trained {
		e.vec.fit(stabilizeFitBatch(cleaned))
		e.log.Info("vectorizer trained",
			zap.Int("batch", len(cleaned)),
			zap.Int("vocabulary", len(e.vec.vocab)),
		)
	}

	for i, text := range cleaned {
		features := e.vec.transform(text)
		projectNormalize(features, vectors[i])
	}

	return vectors
}

// stabilizeFitBatch supplements a small first batch with fixed seed sentences
// before fitting. The seeds only shape the vocabulary; vectors are never
// returned for them.
func stabilizeFitBatch(cleaned []string) []string {
	if len(cleaned) >= minFitDocs {
		return cleaned
	}

	batch := make([]string, 0, len(cleaned)+len(seedSentences))
	batch = append(batch, cleaned...)
	batch = append(batch, seedSentences...)
	return batch
}

// padDegenerate appends filler tokens to texts shorter than three tokens so
// they do not produce degenerate feature vectors.
func padDegenerate(text string) string {
	tokens := strings.Fields(text)
	for i := 0; len(tokens) < 3 && i < len(fillerTokens); i++ {
		tokens = append(tokens, fillerTokens[i])
	}
	return strings.Join(tokens, " ")
}

// cleanText strips URLs, replaces punctuation with whitespace and collapses
// the rest to single-spaced lowercase tokens.
func cleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// projectNormalize copies features into the fixed-dimension output vector,
// zero-padding or truncating, then L2-normalizes in place.
func projectNormalize(features []float64, out []float32) {
	n := len(features)
	if n > len(out) {
		n = len(out)
	}

	var norm float64
	for i := 0; i < n; i++ {
		out[i] = float32(features[i])
		norm += features[i] * features[i]
	}

	if norm == 0 {
		return
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := 0; i < n; i++ {
		out[i] *= scale
	}
}
