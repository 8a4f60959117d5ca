package ai

import "math"

// NormalizeVector returns a unit-length copy of v. A zero vector yields a
// zero vector of the same length.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	// Calculate magnitude
	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// NormalizeVectors normalizes every vector in place in the slice.
func NormalizeVectors(vectors [][]float32) {
	for i, v := range vectors {
		vectors[i] = NormalizeVector(v)
	}
}
