package shapeops

import (
	"sort"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// Rebin re-bins var along d from oldEdges to newEdges (spec.md §4.7):
// var's unit must be counts, both edge sets must be sorted (either
// direction, independently), and each new bin's value is the overlap-
// weighted sum of the old bins it straddles. The per-element offset
// is always computed through var's actual strides, so this handles an
// inner stride of 1 (the common dense case) and any other stride with
// the same formula — no separate fast path is needed because the
// "optimized" case is just this general one specialized to stride 1.
func Rebin(v *variable.Variable, d dim.Dim, oldEdges, newEdges []float64) (*variable.Variable, error) {
	if !v.Unit().Equal(unit.Counts) {
		return nil, &errs.UnitError{Op: "rebin", Want: unit.Counts.String(), Got: v.Unit().String()}
	}
	axis := v.Dims().IndexOf(d)
	if axis < 0 {
		return nil, &errs.DimensionError{Op: "rebin", Reason: "dim not present"}
	}
	oldExtent := v.Dims().ExtentAt(axis)
	if len(oldEdges) != oldExtent+1 {
		return nil, &errs.BinEdgeError{Op: "rebin", Reason: "len(old_edges) must be extent+1"}
	}
	if !monotonic(oldEdges) || !monotonic(newEdges) {
		return nil, &errs.BinEdgeError{Op: "rebin", Reason: "edges must be sorted ascending or descending"}
	}
	newExtent := len(newEdges) - 1
	if newExtent < 0 {
		return nil, &errs.BinEdgeError{Op: "rebin", Reason: "new_edges must have at least two entries"}
	}

	var data []float64
	switch v.Dtype() {
	case dtype.Float64:
		var err error
		data, err = v.Float64Data()
		if err != nil {
			return nil, err
		}
	case dtype.Bool:
		bools, err := v.BoolData()
		if err != nil {
			return nil, err
		}
		data = make([]float64, len(bools))
		for i, b := range bools {
			if b {
				data[i] = 1
			}
		}
	default:
		return nil, &errs.TypeError{Op: "rebin", Dtype: v.Dtype().String()}
	}
	variances, _ := v.Float64Variances()

	outDims := dimensions.Dimensions{}
	labels := v.Dims().Labels()
	shape := v.Dims().Shape()
	for i, lbl := range labels {
		ext := shape[i]
		if i == axis {
			ext = newExtent
		}
		if err := outDims.Push(lbl, ext); err != nil {
			return nil, err
		}
	}
	out, err := variable.MakeVariable(outDims, v.Unit(), dtype.Float64, variances != nil)
	if err != nil {
		return nil, err
	}
	outData, _ := out.Float64Data()
	outVar, _ := out.Float64Variances()
	outStrides := out.Strides()

	outerShape := append([]int(nil), shape...)
	outerShape[axis] = 1
	n := 1
	for _, e := range outerShape {
		n *= e
	}
	idx := make([]int, len(shape))
	axisStride := v.Strides()[axis]
	outAxisStride := outStrides[axis]
	for i := 0; i < n; i++ {
		base := v.Offset() + flat(v.Strides(), idx)
		outBase := out.Offset() + flat(outStrides, idx)
		for j := 0; j < oldExtent; j++ {
			oldLo, oldHi := edgeRange(oldEdges, j)
			width := oldHi - oldLo
			if width == 0 {
				continue
			}
			val := data[base+j*axisStride]
			var varAtJ float64
			if variances != nil {
				varAtJ = variances[base+j*axisStride]
			}
			for k := 0; k < newExtent; k++ {
				newLo, newHi := edgeRange(newEdges, k)
				overlap := intersect(oldLo, oldHi, newLo, newHi)
				if overlap <= 0 {
					continue
				}
				weight := overlap / width
				of := outBase + k*outAxisStride
				outData[of] += weight * val
				if outVar != nil {
					outVar[of] += weight * weight * varAtJ
				}
			}
		}
		advance(idx, outerShape)
	}
	return out, nil
}

// edgeRange returns the ascending [lo,hi) interval for bin i of a
// possibly-descending edges slice.
func edgeRange(edges []float64, i int) (lo, hi float64) {
	a, b := edges[i], edges[i+1]
	if a <= b {
		return a, b
	}
	return b, a
}

func intersect(aLo, aHi, bLo, bHi float64) float64 {
	lo := aLo
	if bLo > lo {
		lo = bLo
	}
	hi := aHi
	if bHi < hi {
		hi = bHi
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func monotonic(edges []float64) bool {
	if len(edges) < 2 {
		return true
	}
	asc := sort.Float64sAreSorted(edges)
	desc := sort.Float64sAreSorted(reversed(edges))
	return asc || desc
}

func reversed(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
