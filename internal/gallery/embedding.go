package gallery

import "math"

// Embedding is a fixed-length face descriptor produced by the detector.
type Embedding = []float32

// Euclidean computes the Euclidean distance between two embeddings.
// Returns +Inf for mismatched or empty vectors so that malformed input
// can never win a nearest-label comparison.
func Euclidean(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Centroid computes the element-wise mean of a set of embeddings.
// All embeddings must share the same dimension; returns nil for empty input.
func Centroid(vs []Embedding) Embedding {
	if len(vs) == 0 {
		return nil
	}

	dim := len(vs[0])
	acc := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil
		}
		for i := range v {
			acc[i] += float64(v[i])
		}
	}

	out := make(Embedding, dim)
	n := float64(len(vs))
	for i := range acc {
		out[i] = float32(acc[i] / n)
	}
	return out
}
