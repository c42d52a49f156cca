package variable

import (
	"fmt"

	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/spatial3"
	"github.com/nscipp/nscipp/unit"
)

// IndexPairsFromSlice builds a dense dtype.IndexPair Variable from
// flat, row-major index pairs, the indices argument MakeBins expects.
func IndexPairsFromSlice(dims dimensions.Dimensions, pairs []spatial3.IndexPair) (*Variable, error) {
	if n := dims.Volume(); n != len(pairs) {
		return nil, &errs.DimensionError{Op: "IndexPairsFromSlice", Reason: fmt.Sprintf("len(pairs)=%d does not match volume=%d", len(pairs), n)}
	}
	return &Variable{
		dtype:  dtype.IndexPair,
		dims:   dims,
		strd:   canonicalStrides(dims.Shape()),
		unit:   unit.None,
		values: buffer.FromSlice(append([]spatial3.IndexPair(nil), pairs...)),
	}, nil
}

// MakeBins constructs a binned Variable (spec.md §4.5 make_bins):
// indices is a dense dtype.IndexPair Variable (one entry per outer
// element), binDim names the contiguous dimension inside buf a bin
// ranges over, and buf is the ragged event payload shared by every
// bin. Indices need not be monotonic or non-overlapping for read;
// they are validated only for being in-range.
func MakeBins(indices *Variable, binDim dim.Dim, buf *Variable) (*Variable, error) {
	if indices.dtype != dtype.IndexPair {
		return nil, &errs.TypeError{Op: "MakeBins", Dtype: indices.dtype.String()}
	}
	if !buf.dims.Contains(binDim) {
		return nil, &errs.DimensionError{Op: "MakeBins", Reason: fmt.Sprintf("bin_dim %q not present in buffer", binDim)}
	}
	limit := buf.dims.Extent(binDim)
	pairs := indices.values.(*buffer.Buffer[spatial3.IndexPair]).Data()
	shape := indices.dims.Shape()
	n := indices.dims.Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		flat := indices.offset + indices.strd.flatIndex(idx)
		p := pairs[flat]
		if p.Begin < 0 || p.End < p.Begin || p.End > limit {
			return nil, &errs.BinnedDataError{Op: "MakeBins", Reason: fmt.Sprintf("index pair [%d,%d) out of range for bin_dim extent %d", p.Begin, p.End, limit)}
		}
		incrementIndex(idx, shape)
	}

	out := indices.shallowCopy()
	out.dtype = dtype.IndexPair
	out.binDim = binDim
	out.binBuffer = buf
	out.unit = buf.unit
	return out, nil
}

// IndexPairs returns the flattened (row-major, dense-materialized)
// index pairs of a binned Variable.
func (v *Variable) IndexPairs() ([]spatial3.IndexPair, error) {
	if !v.IsBinned() {
		return nil, &errs.TypeError{Op: "IndexPairs", Dtype: v.dtype.String()}
	}
	cp := copyStrided[spatial3.IndexPair](v, v.values)
	return cp.Data(), nil
}

// EmptyBinsLike returns a binned Variable with the same outer shape
// and bin_dim as v but an empty (0-length along bin_dim) bin buffer,
// the typical starting point before appending events per bin.
func EmptyBinsLike(v *Variable) (*Variable, error) {
	if !v.IsBinned() {
		return nil, &errs.TypeError{Op: "EmptyBinsLike", Dtype: v.dtype.String()}
	}
	var zeroExtent dimensions.Dimensions
	for _, lbl := range v.binBuffer.dims.Labels() {
		ext := v.binBuffer.dims.Extent(lbl)
		if lbl == v.binDim {
			ext = 0
		}
		if err := zeroExtent.Push(lbl, ext); err != nil {
			return nil, err
		}
	}
	empty, err := MakeVariable(zeroExtent, v.binBuffer.unit, v.binBuffer.dtype, v.binBuffer.HasVariances())
	if err != nil {
		return nil, err
	}
	zeroed := make([]spatial3.IndexPair, v.dims.Volume())
	idxVar, err := IndexPairsFromSlice(v.dims, zeroed)
	if err != nil {
		return nil, err
	}
	return MakeBins(idxVar, v.binDim, empty)
}
