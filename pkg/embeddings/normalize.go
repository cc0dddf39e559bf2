// Package embeddings provides utilities for embedding vectors (L2 normalization, cosine similarity).
package embeddings

import (
	"math"
)

// NormalizeL2 scales vector in place to unit length. All-zero vectors are left unchanged.
func NormalizeL2(vector []float32) {
	magnitude := Magnitude(vector)
	if magnitude == 0 {
		return
	}

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Magnitude returns the Euclidean length of vector.
func Magnitude(vector []float32) float64 {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	return math.Sqrt(sumSquares)
}
