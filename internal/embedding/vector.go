package embedding

import "math"

// CosineSimilarity returns the normalized dot product of two vectors in [-1, 1].
// A zero-norm vector or a dimension mismatch yields exactly 0: malformed input
// means "unrelated", it must never crash the ranking pipeline.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Average returns the element-wise mean of the given vectors. Used when a
// group's representative embedding must summarize multiple member texts.
// Returns nil for an empty input or mismatched dimensions.
func Average(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
		for i, x := range v {
			sums[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	for i, s := range sums {
		out[i] = float32(s / float64(len(vectors)))
	}
	return out
}
