package variable

import "github.com/nscipp/nscipp/dimensions"

// strides holds one element-count stride per dim, in the same
// storage order as the Variable's Dimensions. A stride of 0 marks a
// broadcast dim (spec.md §4.3 broadcast: "new dims are inserted with
// stride 0"). Unlike gonum's blas64.General, which tracks a single
// row stride for a fixed rank-2 layout, nscipp needs one stride per
// dim because Dimensions is ordered but rank-polymorphic (up to
// dimensions.MaxRank).
type strides []int

// canonicalStrides returns the default row-major (outermost-first)
// strides for shape, the layout a freshly allocated dense Variable
// uses before any transpose or broadcast view is taken.
func canonicalStrides(shape []int) strides {
	s := make(strides, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// flatIndex returns the flat element offset (relative to the
// Variable's own offset field) for the multi-index idx, given in
// storage order.
func (s strides) flatIndex(idx []int) int {
	off := 0
	for i, st := range s {
		off += idx[i] * st
	}
	return off
}

// clone returns an independent copy of s.
func (s strides) clone() strides {
	out := make(strides, len(s))
	copy(out, s)
	return out
}

// isCanonical reports whether s matches the default row-major layout
// for shape — Reshape uses it to refuse non-contiguous storage
// (spec.md §4.7).
func isCanonical(s strides, shape []int) bool {
	want := canonicalStrides(shape)
	if len(s) != len(want) {
		return false
	}
	for i := range s {
		if s[i] != want[i] {
			return false
		}
	}
	return true
}

// dimsShape is a small helper so strides code doesn't need to import
// dim directly.
func dimsShape(d dimensions.Dimensions) []int { return d.Shape() }
