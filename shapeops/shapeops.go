// Package shapeops implements spec.md §4.7's shape-changing
// operations (concat, rebin, fold, flatten, squeeze, transpose,
// broadcast), grounded on the storage-order and bounds-merging idiom
// of spatial/r3's bounding-box logic and mat's row-major slicing
// conventions, generalized from a fixed rank-3/rank-2 layout to
// nscipp's rank-polymorphic Dimensions.
package shapeops

import (
	"fmt"

	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/spatial3"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// Transpose is a thin re-export of variable.Transpose: a shape op is,
// for a dense Variable, just a reordering of its own view.
func Transpose(v *variable.Variable, order []dim.Dim) (*variable.Variable, error) {
	return v.Transpose(order)
}

// Broadcast is a thin re-export of variable.Broadcast.
func Broadcast(v *variable.Variable, target dimensions.Dimensions) (*variable.Variable, error) {
	return v.Broadcast(target)
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

// Concat joins a and b along d (spec.md §4.7): every other dim must
// match exactly between the two operands.
func Concat(a, b *variable.Variable, d dim.Dim) (*variable.Variable, error) {
	if a.Dtype() != b.Dtype() {
		return nil, &errs.TypeError{Op: "concat", Dtype: fmt.Sprintf("(%s,%s)", a.Dtype(), b.Dtype())}
	}
	if err := unit.CheckEqual("concat", a.Unit(), b.Unit()); err != nil {
		return nil, err
	}
	aLabels, bLabels := a.Dims().Labels(), b.Dims().Labels()
	if len(aLabels) != len(bLabels) {
		return nil, &errs.DimensionError{Op: "concat", Reason: "operands have different rank"}
	}
	for i, lbl := range aLabels {
		if bLabels[i] != lbl {
			return nil, &errs.DimensionError{Op: "concat", Reason: "operands have different dim order"}
		}
		if lbl == d {
			continue
		}
		if a.Dims().ExtentAt(i) != b.Dims().ExtentAt(i) {
			return nil, &errs.DimensionError{Op: "concat", Reason: fmt.Sprintf("extent mismatch on dim %q", lbl)}
		}
	}
	if a.IsBinned() || b.IsBinned() {
		return concatBinned(a, b, d)
	}

	axis := a.Dims().IndexOf(d)
	if axis < 0 {
		return nil, &errs.DimensionError{Op: "concat", Reason: fmt.Sprintf("dim %q not present", d)}
	}
	aExt, bExt := a.Dims().ExtentAt(axis), b.Dims().ExtentAt(axis)
	outDims := a.Dims()
	shape := outDims.Shape()
	shape[axis] = aExt + bExt
	nd := dimensions.Dimensions{}
	for i, lbl := range outDims.Labels() {
		if err := nd.Push(lbl, shape[i]); err != nil {
			return nil, err
		}
	}
	out, err := variable.MakeVariable(nd, a.Unit(), a.Dtype(), a.HasVariances() || b.HasVariances())
	if err != nil {
		return nil, err
	}
	if err := copyInto(out, a, axis, 0); err != nil {
		return nil, err
	}
	if err := copyInto(out, b, axis, aExt); err != nil {
		return nil, err
	}
	return out, nil
}

// elementCopyFunc returns a closure copying a single element from src
// to dst at the given flat offsets, for any of the closed dtype set
// (spec.md §3) that a dense Concat operand may hold. index_pair and
// the bin<T>/DataArray/Dataset container tags are excluded: Concat
// routes binned operands to concatBinned before copyInto is ever
// called, so dst/src here are always a bare values (or variances)
// buffer of one of the cases below.
func elementCopyFunc(dt dtype.Dtype, dst, src buffer.Untyped) (func(di, si int), error) {
	switch dt {
	case dtype.Float64:
		d, s := dst.(*buffer.Buffer[float64]).Data(), src.(*buffer.Buffer[float64]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Float32:
		d, s := dst.(*buffer.Buffer[float32]).Data(), src.(*buffer.Buffer[float32]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Int64, dtype.TimePoint:
		d, s := dst.(*buffer.Buffer[int64]).Data(), src.(*buffer.Buffer[int64]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Int32:
		d, s := dst.(*buffer.Buffer[int32]).Data(), src.(*buffer.Buffer[int32]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Bool:
		d, s := dst.(*buffer.Buffer[bool]).Data(), src.(*buffer.Buffer[bool]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.String:
		d, s := dst.(*buffer.Buffer[string]).Data(), src.(*buffer.Buffer[string]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Vector3:
		d, s := dst.(*buffer.Buffer[spatial3.Vector3]).Data(), src.(*buffer.Buffer[spatial3.Vector3]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Matrix3:
		d, s := dst.(*buffer.Buffer[spatial3.Matrix3]).Data(), src.(*buffer.Buffer[spatial3.Matrix3]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Affine3:
		d, s := dst.(*buffer.Buffer[spatial3.Affine3]).Data(), src.(*buffer.Buffer[spatial3.Affine3]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Rotation:
		d, s := dst.(*buffer.Buffer[spatial3.Rotation]).Data(), src.(*buffer.Buffer[spatial3.Rotation]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	case dtype.Translation:
		d, s := dst.(*buffer.Buffer[spatial3.Translation]).Data(), src.(*buffer.Buffer[spatial3.Translation]).Data()
		return func(di, si int) { d[di] = s[si] }, nil
	default:
		return nil, &errs.TypeError{Op: "concat", Dtype: dt.String()}
	}
}

// copyInto copies src's elements into out, offsetting src's position
// along axis by shift (out is assumed dense and freshly allocated).
// Variances, when present, are always dtype.Float64 or dtype.Float32
// (the only dtypes that can carry them, per variable.MakeVariable),
// so they are copied through variable.FloatAccessor rather than
// elementCopyFunc.
func copyInto(out, src *variable.Variable, axis, shift int) error {
	copyVal, err := elementCopyFunc(out.Dtype(), out.Values(), src.Values())
	if err != nil {
		return err
	}
	var outVar, srcVar variable.FloatAccessor
	hasOutVar := out.HasVariances()
	hasSrcVar := src.HasVariances()
	if hasOutVar {
		outVar, _, err = out.FloatVariances()
		if err != nil {
			return err
		}
	}
	if hasSrcVar {
		srcVar, _, err = src.FloatVariances()
		if err != nil {
			return err
		}
	}

	shape := src.Dims().Shape()
	n := src.Dims().Volume()
	outStrides := out.Strides()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		sf := src.Offset() + flat(src.Strides(), idx)
		outIdx := append([]int(nil), idx...)
		outIdx[axis] += shift
		of := out.Offset() + flat(outStrides, outIdx)
		copyVal(of, sf)
		if hasOutVar {
			if hasSrcVar {
				outVar.Set(of, srcVar.Get(sf))
			} else {
				outVar.Set(of, 0)
			}
		}
		advance(idx, shape)
	}
	return nil
}

// Squeeze drops dims (each of which must have extent 1); if dims is
// empty, every extent-1 dim is dropped (spec.md §4.7).
func Squeeze(v *variable.Variable, dims []dim.Dim) (*variable.Variable, error) {
	if len(dims) == 0 {
		for _, lbl := range v.Dims().Labels() {
			if v.Dims().Extent(lbl) == 1 {
				dims = append(dims, lbl)
			}
		}
	}
	out := v
	for _, d := range dims {
		if out.Dims().Extent(d) != 1 {
			return nil, &errs.DimensionError{Op: "squeeze", Reason: fmt.Sprintf("dim %q does not have extent 1", d)}
		}
		var err error
		out, err = out.SliceAt(d, 0)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Flatten merges dims (which must be contiguous and in storage order)
// into a single new dim to, multiplying their extents (spec.md §4.7).
func Flatten(v *variable.Variable, dims []dim.Dim, to dim.Dim) (*variable.Variable, error) {
	labels := v.Dims().Labels()
	first := v.Dims().IndexOf(dims[0])
	if first < 0 {
		return nil, &errs.DimensionError{Op: "flatten", Reason: "first dim not present"}
	}
	for i, d := range dims {
		if first+i >= len(labels) || labels[first+i] != d {
			return nil, &errs.DimensionError{Op: "flatten", Reason: "dims are not contiguous and in storage order"}
		}
	}
	shape := v.Dims().Shape()
	merged := 1
	for i := range dims {
		merged *= shape[first+i]
	}
	nd := dimensions.Dimensions{}
	for i, lbl := range labels {
		if i < first || i >= first+len(dims) {
			if err := nd.Push(lbl, shape[i]); err != nil {
				return nil, err
			}
			continue
		}
		if i == first {
			if err := nd.Push(to, merged); err != nil {
				return nil, err
			}
		}
	}
	return v.Copy().Reshape(nd)
}

// Fold replaces dim from with the listed dims (in order), whose
// extents must multiply to from's extent (spec.md §4.7).
func Fold(v *variable.Variable, from dim.Dim, into []dim.Dim, extents []int) (*variable.Variable, error) {
	idx := v.Dims().IndexOf(from)
	if idx < 0 {
		return nil, &errs.DimensionError{Op: "fold", Reason: fmt.Sprintf("dim %q not present", from)}
	}
	if len(into) != len(extents) {
		return nil, &errs.DimensionError{Op: "fold", Reason: "into and extents must have equal length"}
	}
	product := 1
	for _, e := range extents {
		product *= e
	}
	if product != v.Dims().ExtentAt(idx) {
		return nil, &errs.DimensionError{Op: "fold", Reason: fmt.Sprintf("extents multiply to %d, want %d", product, v.Dims().ExtentAt(idx))}
	}
	labels := v.Dims().Labels()
	shape := v.Dims().Shape()
	nd := dimensions.Dimensions{}
	for i, lbl := range labels {
		if lbl != from {
			if err := nd.Push(lbl, shape[i]); err != nil {
				return nil, err
			}
			continue
		}
		for j, toDim := range into {
			if err := nd.Push(toDim, extents[j]); err != nil {
				return nil, err
			}
		}
	}
	return v.Copy().Reshape(nd)
}
