package shapeops

import (
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/spatial3"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// concatBinned implements spec.md §4.5/§4.7's two binned-concat cases:
// concatenating along bin_dim grows every bin by appending b's events
// after a's; concatenating along an outer dim stacks the two sets of
// bins and shifts b's indices into the combined buffer.
func concatBinned(a, b *variable.Variable, d dim.Dim) (*variable.Variable, error) {
	if !a.IsBinned() || !b.IsBinned() {
		return nil, &errs.TypeError{Op: "concat", Dtype: "binned+dense concat is not supported"}
	}
	if a.BinDim() != b.BinDim() {
		return nil, &errs.DimensionError{Op: "concat", Reason: "binned operands have different bin_dim"}
	}
	if d == a.BinDim() {
		return concatBinsAlongBinDim(a, b)
	}
	return concatBinsAlongOuterDim(a, b, d)
}

func concatBinsAlongBinDim(a, b *variable.Variable) (*variable.Variable, error) {
	aBuf, bBuf := a.BinBuffer(), b.BinBuffer()
	if aBuf.Dims().Rank() != 1 || bBuf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: "concat", Reason: "binned concat on a multi-dimensional bin buffer"}
	}
	if aBuf.Dtype() != bBuf.Dtype() {
		return nil, &errs.TypeError{Op: "concat", Dtype: "bin buffers have different dtypes"}
	}
	if err := unit.CheckEqual("concat", aBuf.Unit(), bBuf.Unit()); err != nil {
		return nil, err
	}
	aPairs, err := a.IndexPairs()
	if err != nil {
		return nil, err
	}
	bPairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	if len(aPairs) != len(bPairs) {
		return nil, &errs.BinnedDataError{Op: "concat", Reason: "binned operands have different outer shapes"}
	}
	aData, err := aBuf.Float64Data()
	if err != nil {
		return nil, err
	}
	bData, err := bBuf.Float64Data()
	if err != nil {
		return nil, err
	}
	aVar, _ := aBuf.Float64Variances()
	bVar, _ := bBuf.Float64Variances()
	withVariance := aVar != nil || bVar != nil

	total := 0
	for i := range aPairs {
		total += aPairs[i].Len() + bPairs[i].Len()
	}
	nd := dimensions.Dimensions{}
	if err := nd.Push(a.BinDim(), total); err != nil {
		return nil, err
	}
	outBuf, err := variable.MakeVariable(nd, aBuf.Unit(), aBuf.Dtype(), withVariance)
	if err != nil {
		return nil, err
	}
	outData, _ := outBuf.Float64Data()
	outVar, _ := outBuf.Float64Variances()

	newPairs := make([]spatial3.IndexPair, len(aPairs))
	cursor := 0
	aStride, bStride := aBuf.Strides()[0], bBuf.Strides()[0]
	for i := range aPairs {
		begin := cursor
		for e := aPairs[i].Begin; e < aPairs[i].End; e++ {
			f := aBuf.Offset() + e*aStride
			outData[cursor] = aData[f]
			if outVar != nil && aVar != nil {
				outVar[cursor] = aVar[f]
			}
			cursor++
		}
		for e := bPairs[i].Begin; e < bPairs[i].End; e++ {
			f := bBuf.Offset() + e*bStride
			outData[cursor] = bData[f]
			if outVar != nil && bVar != nil {
				outVar[cursor] = bVar[f]
			}
			cursor++
		}
		newPairs[i] = spatial3.IndexPair{Begin: begin, End: cursor}
	}
	idxVar, err := variable.IndexPairsFromSlice(a.Dims(), newPairs)
	if err != nil {
		return nil, err
	}
	return variable.MakeBins(idxVar, a.BinDim(), outBuf)
}

// concatBinsAlongOuterDim stacks a and b's bins along d (one of the
// binned variable's own outer dims, not bin_dim), restricted to the
// common single-outer-dim shape.
func concatBinsAlongOuterDim(a, b *variable.Variable, d dim.Dim) (*variable.Variable, error) {
	if a.Dims().Rank() != 1 || b.Dims().Rank() != 1 || a.Dims().DimAt(0) != d {
		return nil, &errs.NotImplementedError{Op: "concat", Reason: "binned concat along an outer dim of a multi-dimensional outer shape"}
	}
	aBuf, bBuf := a.BinBuffer(), b.BinBuffer()
	merged, err := Concat(aBuf, bBuf, a.BinDim())
	if err != nil {
		return nil, err
	}
	shift := aBuf.Dims().Extent(a.BinDim())
	aPairs, err := a.IndexPairs()
	if err != nil {
		return nil, err
	}
	bPairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	combined := make([]spatial3.IndexPair, 0, len(aPairs)+len(bPairs))
	combined = append(combined, aPairs...)
	for _, p := range bPairs {
		combined = append(combined, spatial3.IndexPair{Begin: p.Begin + shift, End: p.End + shift})
	}
	outerDims := dimensions.Dimensions{}
	if err := outerDims.Push(d, len(combined)); err != nil {
		return nil, err
	}
	idxVar, err := variable.IndexPairsFromSlice(outerDims, combined)
	if err != nil {
		return nil, err
	}
	return variable.MakeBins(idxVar, a.BinDim(), merged)
}
