package tfidf

import "math"

// Entry is one non-zero dimension of a sparse vector.
type Entry struct {
	Dim    int
	Weight float64
}

// Vector is a sparse vector with entries sorted by dimension.
type Vector []Entry

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, e := range v {
		sum += e.Weight * e.Weight
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of two vectors sorted by dimension.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].Dim == o[j].Dim:
			sum += v[i].Weight * o[j].Weight
			i++
			j++
		case v[i].Dim < o[j].Dim:
			i++
		default:
			j++
		}
	}
	return sum
}

// normalized scales v to unit length in place. A zero vector stays zero.
func (v Vector) normalized() Vector {
	norm := v.Norm()
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i].Weight /= norm
	}
	return v
}
