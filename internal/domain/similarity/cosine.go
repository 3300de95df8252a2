package similarity

import "math"

// CosineDistance returns 1 - cos(a, b), clamped to [0, 2]. A zero vector has
// no direction; its distance to anything is 1, as is the distance of a
// vector holding a non-finite value. a and b must have equal length.
//
// Each vector is divided by its largest absolute component before the sums
// are taken, so finite inputs of any magnitude cannot overflow.
func CosineDistance(a, b []float64) float64 {
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 || math.IsInf(sa, 0) || math.IsInf(sb, 0) || math.IsNaN(sa) || math.IsNaN(sb) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		na += x * x
		nb += y * y
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	switch {
	case math.IsNaN(d):
		return 1
	case d < 0:
		return 0
	case d > 2:
		return 2
	}
	return d
}

// maxAbs returns the largest absolute component of v, or NaN when v holds
// a NaN.
func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if math.IsNaN(x) {
			return math.NaN()
		}
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m
}
