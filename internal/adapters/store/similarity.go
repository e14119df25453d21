package store

import (
	"encoding/binary"
	"math"
	"sort"
)

// candidateWindow bounds how many recent entries are loaded for
// semantic ranking
const candidateWindow = 200

// storedEntry is one context text with its optional embedding
type storedEntry struct {
	content   string
	embedding []float32
}

// encodeVector serializes an embedding for storage
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a stored embedding
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or -1 when either is empty, mismatched or zero
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topBySimilarity returns up to limit contents ranked by similarity to
// the query vector. Entries without embeddings score -1 and stay in
// their incoming (recency) order at the tail.
func topBySimilarity(query []float32, entries []storedEntry, limit int) []string {
	type scored struct {
		content string
		score   float64
	}

	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, scored{content: e.content, score: cosineSimilarity(query, e.embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.content
	}
	return out
}
