package matching

import "math"

// normEpsilon guards cosine similarity against near-zero vectors.
const normEpsilon = 1e-9

type Vector []float32

func Zero() Vector {
	return make(Vector, Dimensions)
}

func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Mean returns the elementwise mean of vs. Vectors whose length differs from
// Dimensions are ignored. No usable input yields the zero vector.
func Mean(vs []Vector) Vector {
	out := make([]float64, Dimensions)
	n := 0
	for _, v := range vs {
		if len(v) != Dimensions {
			continue
		}
		for i, x := range v {
			out[i] += float64(x)
		}
		n++
	}
	if n == 0 {
		return Zero()
	}
	res := make(Vector, Dimensions)
	for i := range out {
		res[i] = float32(out[i] / float64(n))
	}
	return res
}

func WeightedSum(vs []Vector, weights []float64) Vector {
	if len(vs) == 0 || len(vs) != len(weights) {
		return Zero()
	}
	acc := make([]float64, Dimensions)
	var total float64
	for k, v := range vs {
		w := weights[k]
		total += w
		if len(v) != Dimensions {
			continue
		}
		for i, x := range v {
			acc[i] += w * float64(x)
		}
	}
	if total <= 0 {
		return Zero()
	}
	res := make(Vector, Dimensions)
	for i := range acc {
		res[i] = float32(acc[i] / total)
	}
	return res
}

// Cosine returns the cosine similarity of a and b, or 0 when either norm is
// below normEpsilon or the lengths differ.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := a.Norm(), b.Norm()
	if na < normEpsilon || nb < normEpsilon {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	sim := dot / (na * nb)
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
