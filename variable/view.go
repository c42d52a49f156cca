package variable

import (
	"fmt"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/errs"
)

// Slice returns a view over the contiguous sub-range [begin,end) of
// dim d (spec.md §4.3 slice(dim,begin,end)).
func (v *Variable) Slice(d dim.Dim, begin, end int) (*Variable, error) {
	i := v.dims.IndexOf(d)
	if i < 0 {
		return nil, &errs.DimensionError{Op: "Slice", Reason: fmt.Sprintf("dim %q not present", d)}
	}
	extent := v.dims.ExtentAt(i)
	if begin < 0 || end < begin || end > extent {
		return nil, &errs.SliceError{Op: "Slice", Reason: fmt.Sprintf("range [%d,%d) out of bounds for extent %d", begin, end, extent)}
	}
	out := v.shallowCopy()
	newDims, shape := v.dims, v.dims.Shape()
	shape[i] = end - begin
	nd := dimensions.Dimensions{}
	labels := newDims.Labels()
	for k, lbl := range labels {
		if err := nd.Push(lbl, shape[k]); err != nil {
			return nil, err
		}
	}
	out.dims = nd
	out.offset = v.offset + begin*v.strd[i]
	if v.IsBinned() {
		out.binBuffer = v.binBuffer
	}
	return out, nil
}

// SliceAt returns a view with dim d removed, selecting single index i
// (negative indices wrap once, spec.md §4.3). The dropped dim becomes
// an implicit "unaligned" position: callers that need a DataArray's
// aligned-coord bookkeeping handle that at the dataset layer.
func (v *Variable) SliceAt(d dim.Dim, i int) (*Variable, error) {
	idx := v.dims.IndexOf(d)
	if idx < 0 {
		return nil, &errs.DimensionError{Op: "SliceAt", Reason: fmt.Sprintf("dim %q not present", d)}
	}
	extent := v.dims.ExtentAt(idx)
	orig := i
	if i < 0 {
		i += extent
	}
	if i < 0 || i >= extent {
		return nil, &errs.SliceError{Op: "SliceAt", Reason: fmt.Sprintf("index %d out of bounds for extent %d", orig, extent)}
	}
	out := v.shallowCopy()
	nd := dimensions.Dimensions{}
	labels := v.dims.Labels()
	shape := v.dims.Shape()
	newStrides := make(strides, 0, len(labels)-1)
	for k, lbl := range labels {
		if lbl == d {
			continue
		}
		if err := nd.Push(lbl, shape[k]); err != nil {
			return nil, err
		}
		newStrides = append(newStrides, v.strd[k])
	}
	out.dims = nd
	out.strd = newStrides
	out.offset = v.offset + i*v.strd[idx]
	out.readOnly = true // non-range slice: unaligned, keep conservative
	if v.IsBinned() {
		out.binBuffer = v.binBuffer
	}
	return out, nil
}

// Transpose returns a view with dims (and strides) reordered to
// order, a permutation of v's current dims (spec.md §4.3).
func (v *Variable) Transpose(order []dim.Dim) (*Variable, error) {
	nd, err := v.dims.Permute(order)
	if err != nil {
		return nil, &errs.DimensionError{Op: "Transpose", Reason: err.Error()}
	}
	newStrides := make(strides, len(order))
	for i, lbl := range order {
		newStrides[i] = v.strd[v.dims.IndexOf(lbl)]
	}
	out := v.shallowCopy()
	out.dims = nd
	out.strd = newStrides
	return out, nil
}

// Broadcast returns a view over target: every dim of v must be
// present in target with the same extent; dims in target absent from
// v are inserted with stride 0 (spec.md §4.3).
func (v *Variable) Broadcast(target dimensions.Dimensions) (*Variable, error) {
	if !target.Includes(v.dims) {
		return nil, &errs.DimensionError{Op: "Broadcast", Reason: "v's dims are not a subset of target with matching extents"}
	}
	labels := target.Labels()
	newStrides := make(strides, len(labels))
	for i, lbl := range labels {
		if j := v.dims.IndexOf(lbl); j >= 0 {
			newStrides[i] = v.strd[j]
		} else {
			newStrides[i] = 0
		}
	}
	out := v.shallowCopy()
	out.dims = target
	out.strd = newStrides
	out.readOnly = true // broadcast dims duplicate elements; writes are refused by default
	return out, nil
}

// shallowCopy returns a new *Variable sharing v's buffers (refcount
// incremented) with the same dims/strides/offset/unit, ready for a
// caller to adjust. This is the "view keeps the parent buffer alive"
// mechanism of spec.md §3's Variable lifecycle paragraph.
func (v *Variable) shallowCopy() *Variable {
	out := &Variable{
		dtype:    v.dtype,
		dims:     v.dims,
		strd:     v.strd.clone(),
		offset:   v.offset,
		unit:     v.unit,
		binDim:   v.binDim,
		readOnly: v.readOnly,
	}
	out.values = v.values.Share()
	if v.variances != nil {
		out.variances = v.variances.Share()
	}
	return out
}
