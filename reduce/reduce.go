// Package reduce implements the per-dimension reduction ops of
// spec.md §4.6 (sum, mean, min, max, all, any), generalizing
// stat.go's Mean/Variance/StdDev and floats.go's Sum/Max/Min from
// flat []float64 slices to a dim-aware, strided, mask-and-bin-honoring
// Variable.
package reduce

import (
	"math"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/variable"
)

// outerShape resolves the reduction: which axis of v's storage is
// dropped, and the dims the output Variable will carry.
func outerShape(v *variable.Variable, d dim.Dim, op string) (out dimensions.Dimensions, axis int, err error) {
	out = v.Dims()
	axis = out.IndexOf(d)
	if axis < 0 {
		return dimensions.Dimensions{}, 0, &errs.DimensionError{Op: op, Reason: "reduction dim not present in operand"}
	}
	if err := out.Erase(d); err != nil {
		return dimensions.Dimensions{}, 0, err
	}
	return out, axis, nil
}

// maskAlong broadcasts mask (if any) to dims and returns the broadcast
// view together with its values materialized in row-major order over
// dims, so entry i is the mask of the i-th element of a row-major walk.
func maskAlong(mask *variable.Variable, dims dimensions.Dimensions) (*variable.Variable, []bool, error) {
	if mask == nil {
		return nil, nil, nil
	}
	if mask.Dtype() != dtype.Bool {
		return nil, nil, &errs.TypeError{Op: "reduce", Dtype: mask.Dtype().String()}
	}
	if !dims.Includes(mask.Dims()) {
		return nil, nil, &errs.DimensionError{Op: "reduce", Reason: "mask dims are not a subset of the reduced operand's dims"}
	}
	mB := mask
	if !mask.Dims().Equal(dims) {
		var err error
		mB, err = mask.Broadcast(dims)
		if err != nil {
			return nil, nil, err
		}
	}
	data, err := mB.Copy().BoolData()
	if err != nil {
		return nil, nil, err
	}
	return mB, data, nil
}

func advance(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}

func flat(strides []int, idx []int) int {
	off := 0
	for i, s := range strides {
		off += idx[i] * s
	}
	return off
}

// outerIndex drops axis from idx, the position of the corresponding
// element in the (already axis-erased) output index space.
func outerIndex(idx []int, axis int) []int {
	out := make([]int, 0, len(idx)-1)
	for i, v := range idx {
		if i == axis {
			continue
		}
		out = append(out, v)
	}
	return out
}

// floatDtype resolves the output dtype for a reduction over v: v's own
// precision if it is a dtype.Float32 Variable, dtype.Float64 for
// dtype.Float64 (and as the fallback for non-float element dtypes
// handled elsewhere, e.g. dtype.Bool's logical reductions).
func floatDtype(v *variable.Variable) dtype.Dtype {
	if v.Dtype() == dtype.Float32 {
		return dtype.Float32
	}
	return dtype.Float64
}

// Sum reduces v along d, summing values and (if present) variances.
// mask, if non-nil, must be a dtype.Bool Variable whose dims are a
// subset of v's; true entries are excluded from the sum. v may be
// dtype.Float64 or dtype.Float32; the output keeps v's precision.
func Sum(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	outDims, axis, err := outerShape(v, d, "sum")
	if err != nil {
		return nil, err
	}
	_, maskData, err := maskAlong(mask, v.Dims())
	if err != nil {
		return nil, err
	}
	data, err := v.FloatValues()
	if err != nil {
		return nil, err
	}
	variances, hasVar, err := v.FloatVariances()
	if err != nil {
		return nil, err
	}

	out, err := variable.MakeVariable(outDims, v.Unit(), floatDtype(v), hasVar)
	if err != nil {
		return nil, err
	}
	outData, _ := out.FloatValues()
	outVar, hasOutVar, _ := out.FloatVariances()
	outStrides := out.Strides()

	shape := v.Dims().Shape()
	n := v.Dims().Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		if maskData == nil || !maskData[i] {
			f := v.Offset() + flat(v.Strides(), idx)
			of := out.Offset() + flat(outStrides, outerIndex(idx, axis))
			outData.Set(of, outData.Get(of)+data.Get(f))
			if hasOutVar {
				outVar.Set(of, outVar.Get(of)+variances.Get(f))
			}
		}
		advance(idx, shape)
	}
	return out, nil
}

// Mean reduces v along d, dividing the sum by the count of unmasked
// contributions (NaN if an output element has none). Variance is the
// summed variance divided by the count squared (spec.md §4.6). v may
// be dtype.Float64 or dtype.Float32; the output keeps v's precision.
func Mean(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	outDims, axis, err := outerShape(v, d, "mean")
	if err != nil {
		return nil, err
	}
	_, maskData, err := maskAlong(mask, v.Dims())
	if err != nil {
		return nil, err
	}
	data, err := v.FloatValues()
	if err != nil {
		return nil, err
	}
	variances, hasVar, err := v.FloatVariances()
	if err != nil {
		return nil, err
	}

	out, err := variable.MakeVariable(outDims, v.Unit(), floatDtype(v), hasVar)
	if err != nil {
		return nil, err
	}
	outData, _ := out.FloatValues()
	outVar, hasOutVar, _ := out.FloatVariances()
	outStrides := out.Strides()
	counts := make([]int, outDims.Volume())

	shape := v.Dims().Shape()
	n := v.Dims().Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		if maskData == nil || !maskData[i] {
			f := v.Offset() + flat(v.Strides(), idx)
			// out is freshly allocated with offset 0 and canonical
			// strides, so of also indexes counts directly.
			of := out.Offset() + flat(outStrides, outerIndex(idx, axis))
			outData.Set(of, outData.Get(of)+data.Get(f))
			if hasOutVar {
				outVar.Set(of, outVar.Get(of)+variances.Get(f))
			}
			counts[of]++
		}
		advance(idx, shape)
	}
	for of, c := range counts {
		if c == 0 {
			outData.Set(of, math.NaN())
			if hasOutVar {
				outVar.Set(of, math.NaN())
			}
		} else {
			outData.Set(of, outData.Get(of)/float64(c))
			if hasOutVar {
				outVar.Set(of, outVar.Get(of)/(float64(c)*float64(c)))
			}
		}
	}
	return out, nil
}

// Min reduces v along d, keeping the smallest unmasked value per
// output element (+Inf, the identity for min, if every contribution
// is masked out).
func Min(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	return extremum(v, d, mask, "min", math.Inf(1), func(a, b float64) bool { return b < a })
}

// Max reduces v along d, keeping the largest unmasked value per
// output element (-Inf, the identity for max, if every contribution
// is masked out).
func Max(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	return extremum(v, d, mask, "max", math.Inf(-1), func(a, b float64) bool { return b > a })
}

func extremum(v *variable.Variable, d dim.Dim, mask *variable.Variable, op string, identity float64, better func(cur, cand float64) bool) (*variable.Variable, error) {
	outDims, axis, err := outerShape(v, d, op)
	if err != nil {
		return nil, err
	}
	_, maskData, err := maskAlong(mask, v.Dims())
	if err != nil {
		return nil, err
	}
	data, err := v.FloatValues()
	if err != nil {
		return nil, err
	}
	out, err := variable.MakeVariable(outDims, v.Unit(), floatDtype(v), false)
	if err != nil {
		return nil, err
	}
	outData, _ := out.FloatValues()
	n0 := outDims.Volume()
	for i := 0; i < n0; i++ {
		outData.Set(i, identity)
	}
	outStrides := out.Strides()

	shape := v.Dims().Shape()
	n := v.Dims().Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		if maskData == nil || !maskData[i] {
			f := v.Offset() + flat(v.Strides(), idx)
			of := out.Offset() + flat(outStrides, outerIndex(idx, axis))
			if better(outData.Get(of), data.Get(f)) {
				outData.Set(of, data.Get(f))
			}
		}
		advance(idx, shape)
	}
	return out, nil
}

// All reduces a dtype.Bool v along d with logical AND (identity true
// if every contribution is masked out).
func All(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	return logical(v, d, mask, "all", true, func(acc, x bool) bool { return acc && x })
}

// Any reduces a dtype.Bool v along d with logical OR (identity false
// if every contribution is masked out).
func Any(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error) {
	return logical(v, d, mask, "any", false, func(acc, x bool) bool { return acc || x })
}

func logical(v *variable.Variable, d dim.Dim, mask *variable.Variable, op string, identity bool, combine func(acc, x bool) bool) (*variable.Variable, error) {
	if v.Dtype() != dtype.Bool {
		return nil, &errs.TypeError{Op: op, Dtype: v.Dtype().String()}
	}
	outDims, axis, err := outerShape(v, d, op)
	if err != nil {
		return nil, err
	}
	_, maskData, err := maskAlong(mask, v.Dims())
	if err != nil {
		return nil, err
	}
	data, err := v.BoolData()
	if err != nil {
		return nil, err
	}
	out, err := variable.MakeVariable(outDims, v.Unit(), dtype.Bool, false)
	if err != nil {
		return nil, err
	}
	outData, _ := out.BoolData()
	for i := range outData {
		outData[i] = identity
	}
	outStrides := out.Strides()

	shape := v.Dims().Shape()
	n := v.Dims().Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		if maskData == nil || !maskData[i] {
			f := v.Offset() + flat(v.Strides(), idx)
			of := out.Offset() + flat(outStrides, outerIndex(idx, axis))
			outData[of] = combine(outData[of], data[f])
		}
		advance(idx, shape)
	}
	return out, nil
}
