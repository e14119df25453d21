package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0.5, -1.25, 3.75, 0}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestEncodeVectorEmpty(t *testing.T) {
	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, encodeVector([]float32{}))
}

func TestDecodeVectorRejectsBadBlobs(t *testing.T) {
	assert.Nil(t, decodeVector(nil))
	assert.Nil(t, decodeVector([]byte{}))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
	assert.Nil(t, decodeVector([]byte{1, 2, 3, 4, 5}))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1,
		},
		{
			name: "orthogonal",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "opposite",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1,
		},
		{
			name: "empty query",
			a:    nil,
			b:    []float32{1, 0},
			want: -1,
		},
		{
			name: "mismatched lengths",
			a:    []float32{1, 0},
			b:    []float32{1, 0, 0},
			want: -1,
		},
		{
			name: "zero vector",
			a:    []float32{1, 0},
			b:    []float32{0, 0},
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestTopBySimilarity(t *testing.T) {
	query := []float32{1, 0}
	entries := []storedEntry{
		{content: "low", embedding: []float32{0.1, 0.9}},
		{content: "high", embedding: []float32{1, 0}},
		{content: "mid", embedding: []float32{0.7, 0.3}},
	}

	assert.Equal(t, []string{"high", "mid", "low"}, topBySimilarity(query, entries, 5))
	assert.Equal(t, []string{"high", "mid"}, topBySimilarity(query, entries, 2))
}

func TestTopBySimilarityKeepsUnembeddedAtTail(t *testing.T) {
	query := []float32{1, 0}
	entries := []storedEntry{
		{content: "newest plain"},
		{content: "match", embedding: []float32{1, 0}},
		{content: "older plain"},
	}

	// Entries without embeddings keep their incoming order after the
	// ranked ones
	got := topBySimilarity(query, entries, 5)
	assert.Equal(t, []string{"match", "newest plain", "older plain"}, got)
}

func TestTopBySimilarityNoLimit(t *testing.T) {
	query := []float32{1, 0}
	entries := []storedEntry{
		{content: "a", embedding: []float32{1, 0}},
		{content: "b", embedding: []float32{0, 1}},
	}
	assert.Len(t, topBySimilarity(query, entries, 0), 2)
}
