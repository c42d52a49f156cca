package transform

import (
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// binnedBinary implements spec.md §4.4 step 6 / §4.5's element-wise
// rule for at least one binned operand: binned+binned requires
// identical index arrays and combines the two bin buffers directly;
// binned+dense broadcasts the dense scalar-per-bin across the bin
// range. Both sides are assumed to already share outDims on entry
// (the caller broadcasts before descending).
//
// binned+dense (and binnedUnary) handle only single-dimensional bin
// buffers (bin_dim is the buffer's only dim, the common
// ragged-event-table shape); a bin buffer carrying extra dims
// alongside bin_dim is rejected there with NotImplementedError rather
// than silently mishandled. binned+binned passes both whole bin
// buffers to Binary and does not check their rank.
func binnedBinary(op Op, a, b, out *variable.Variable, elem ElemBinary) (*variable.Variable, error) {
	switch {
	case a.IsBinned() && b.IsBinned():
		return binnedBothBinary(op, a, b, elem)
	case a.IsBinned():
		return binnedScalarBinary(op, a, b, elem, false)
	case b.IsBinned():
		return binnedScalarBinary(op, b, a, elem, true)
	default:
		panic("transform: binnedBinary called with no binned operand")
	}
}

func binnedBothBinary(op Op, a, b *variable.Variable, elem ElemBinary) (*variable.Variable, error) {
	aPairs, err := a.IndexPairs()
	if err != nil {
		return nil, err
	}
	bPairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	if len(aPairs) != len(bPairs) {
		return nil, &errs.BinnedDataError{Op: op.Name, Reason: "binned operands have different outer shapes"}
	}
	for i := range aPairs {
		if aPairs[i] != bPairs[i] {
			return nil, &errs.BinnedDataError{Op: op.Name, Reason: "binned operands do not share identical index arrays"}
		}
	}
	bufOut, err := Binary(op, a.BinBuffer(), b.BinBuffer(), elem)
	if err != nil {
		return nil, err
	}
	return variable.MakeBins(a, a.BinDim(), bufOut)
}

// binnedScalarBinary combines a binned operand with a dense operand
// broadcasting one scalar per outer element across that element's bin
// range. swapped indicates the dense operand was the left-hand side
// of the original call (so elem's argument order is swapped back).
func binnedScalarBinary(op Op, binned, dense *variable.Variable, elem ElemBinary, swapped bool) (*variable.Variable, error) {
	buf := binned.BinBuffer()
	if buf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: op.Name, Reason: "binned op on a multi-dimensional bin buffer"}
	}
	pairs, err := binned.IndexPairs()
	if err != nil {
		return nil, err
	}
	denseB, err := broadcastTo(dense, binned.Dims())
	if err != nil {
		return nil, err
	}
	denseData, err := denseB.Float64Data()
	if err != nil {
		return nil, err
	}
	denseVar, _ := denseB.Float64Variances()

	withVariance := !op.Flags.has(NoOutVariance) && (buf.HasVariances() || dense.HasVariances())
	var outUnit unit.Unit
	if swapped {
		outUnit, err = op.Unit(dense.Unit(), buf.Unit())
	} else {
		outUnit, err = op.Unit(buf.Unit(), dense.Unit())
	}
	if err != nil {
		return nil, err
	}
	outBuf, err := variable.MakeVariable(buf.Dims(), outUnit, buf.Dtype(), withVariance)
	if err != nil {
		return nil, err
	}
	bufData, err := buf.Float64Data()
	if err != nil {
		return nil, err
	}
	bufVar, _ := buf.Float64Variances()
	outData, err := outBuf.Float64Data()
	if err != nil {
		return nil, err
	}
	outVar, _ := outBuf.Float64Variances()

	shape := binned.Dims().Shape()
	idx := make([]int, len(shape))
	n := binned.Dims().Volume()
	for i := 0; i < n; i++ {
		pair := pairs[i]
		df := denseB.Offset() + flat(denseB.Strides(), idx)
		dv := ValueAndVariance{Value: denseData[df]}
		if denseVar != nil {
			dv.Variance = denseVar[df]
		}
		for e := pair.Begin; e < pair.End; e++ {
			bf := buf.Offset() + e*buf.Strides()[0]
			of := outBuf.Offset() + e*outBuf.Strides()[0]
			bv := ValueAndVariance{Value: bufData[bf]}
			if bufVar != nil {
				bv.Variance = bufVar[bf]
			}
			var r ValueAndVariance
			if swapped {
				r = elem(dv, bv)
			} else {
				r = elem(bv, dv)
			}
			outData[of] = r.Value
			if outVar != nil {
				outVar[of] = r.Variance
			}
		}
		advance(idx, shape)
	}
	return variable.MakeBins(binned, binned.BinDim(), outBuf)
}

func binnedUnary(op Op, a, out *variable.Variable, elem ElemUnary) (*variable.Variable, error) {
	buf := a.BinBuffer()
	if buf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: op.Name, Reason: "binned op on a multi-dimensional bin buffer"}
	}
	pairs, err := a.IndexPairs()
	if err != nil {
		return nil, err
	}
	outBuf, err := variable.MakeVariable(buf.Dims(), out.Unit(), buf.Dtype(), buf.HasVariances() && !op.Flags.has(NoOutVariance))
	if err != nil {
		return nil, err
	}
	bufData, err := buf.Float64Data()
	if err != nil {
		return nil, err
	}
	bufVar, _ := buf.Float64Variances()
	outData, err := outBuf.Float64Data()
	if err != nil {
		return nil, err
	}
	outVar, _ := outBuf.Float64Variances()

	for _, pair := range pairs {
		for e := pair.Begin; e < pair.End; e++ {
			bf := buf.Offset() + e*buf.Strides()[0]
			of := outBuf.Offset() + e*outBuf.Strides()[0]
			x := ValueAndVariance{Value: bufData[bf]}
			if bufVar != nil {
				x.Variance = bufVar[bf]
			}
			r := elem(x)
			outData[of] = r.Value
			if outVar != nil {
				outVar[of] = r.Variance
			}
		}
	}
	return variable.MakeBins(a, a.BinDim(), outBuf)
}
