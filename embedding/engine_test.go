package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedDimensionAndOrder(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine(0)
	assert.Equal(DefaultDimension, engine.Dimension())

	texts := []string{
		"new summer collection dropping this friday",
		"behind the scenes at our studio shoot",
		"giveaway time tag a friend to enter",
	}

	vectors := engine.Embed(texts)
	assert.Len(vectors, len(texts))

	for _, vec := range vectors {
		assert.Len(vec, DefaultDimension)
	}
}

func TestEmbedNormalized(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine(64)

	vectors := engine.Embed([]string{
		"our new lipstick shade is finally here",
		"swipe up for the full tutorial",
	})

	for _, vec := range vectors {
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}

		assert.InDelta(1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestEmbedEmptyTextDegrades(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine(32)

	// Train the vocabulary first so the empty text cannot smuggle filler
	// tokens into it.
	engine.Embed([]string{
		"skincare routine for dry winter days",
		"five tips for better product photos",
		"how we package every single order",
		"meet the team behind the brand",
		"restock alert on the bestsellers",
	})

	vectors := engine.Embed([]string{"https://example.com/p/abc123"})
	assert.Len(vectors, 1)

	for _, v := range vectors[0] {
		assert.Zero(v)
	}
}

func TestTrainedLifecycle(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine(32)
	assert.False(engine.Trained())

	engine.Embed([]string{"first batch freezes the vocabulary"})
	assert.True(engine.Trained())

	engine.Reset()
	assert.False(engine.Trained())
}

func TestSmallFirstBatchStabilized(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine(32)
	engine.Embed([]string{"launch day"})

	assert.True(engine.Trained())

	// Seed sentences shaped the vocabulary, so it holds far more tokens
	// than the two-token input alone could produce.
	assert.Greater(len(engine.vec.vocab), 10)
}

func TestEmbedDeterministic(t *testing.T) {
	assert := assert.New(t)

	texts := []string{
		"morning routine with our vitamin c serum",
		"unboxing the limited edition bundle",
		"three ways to style the oversized hoodie",
		"last chance to shop the spring sale",
		"thank you for one million followers",
	}

	a := NewEngine(48).Embed(texts)
	b := NewEngine(48).Embed(texts)

	assert.Equal(a, b)
}

func TestCleanText(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("check this out", cleanText("Check THIS out!!! https://t.co/xyz"))
	assert.Equal("50 off today", cleanText("  50% off, TODAY  "))
	assert.Equal("", cleanText("www.example.com/shop"))
}

func TestPadDegenerate(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("sale social media", padDegenerate("sale"))
	assert.Equal("big sale social", padDegenerate("big sale"))
	assert.Equal("big summer sale", padDegenerate("big summer sale"))
}
