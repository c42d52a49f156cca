package reduce

import (
	"math"

	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/variable"
)

// BinsSum reduces each bin of a binned Variable to the sum of its
// events, returning a dense Variable shaped like b's outer dims
// (spec.md §4.5's bins_sum).
func BinsSum(b *variable.Variable) (*variable.Variable, error) {
	return binsReduce(b, "bins_sum", 0, func(acc, v float64) float64 { return acc + v }, true)
}

// BinsMean reduces each bin to the mean of its events (NaN for an
// empty bin).
func BinsMean(b *variable.Variable) (*variable.Variable, error) {
	buf := b.BinBuffer()
	if buf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: "bins_mean", Reason: "binned reduction on a multi-dimensional bin buffer"}
	}
	pairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	data, err := buf.Float64Data()
	if err != nil {
		return nil, err
	}
	variances, _ := buf.Float64Variances()
	out, err := variable.MakeVariable(b.Dims(), buf.Unit(), dtype.Float64, variances != nil)
	if err != nil {
		return nil, err
	}
	outData, _ := out.Float64Data()
	outVar, _ := out.Float64Variances()
	for i, p := range pairs {
		n := p.Len()
		var sum, sumVar float64
		for e := p.Begin; e < p.End; e++ {
			f := buf.Offset() + e*buf.Strides()[0]
			sum += data[f]
			if variances != nil {
				sumVar += variances[f]
			}
		}
		if n == 0 {
			outData[i] = math.NaN()
			if outVar != nil {
				outVar[i] = math.NaN()
			}
			continue
		}
		outData[i] = sum / float64(n)
		if outVar != nil {
			outVar[i] = sumVar / float64(n*n)
		}
	}
	return out, nil
}

// BinsMax reduces each bin to its largest event value (-Inf for an
// empty bin, the identity for max).
func BinsMax(b *variable.Variable) (*variable.Variable, error) {
	return binsExtremum(b, "bins_max", math.Inf(-1), func(cur, cand float64) bool { return cand > cur })
}

// BinsMin reduces each bin to its smallest event value (+Inf for an
// empty bin, the identity for min).
func BinsMin(b *variable.Variable) (*variable.Variable, error) {
	return binsExtremum(b, "bins_min", math.Inf(1), func(cur, cand float64) bool { return cand < cur })
}

func binsReduce(b *variable.Variable, op string, identity float64, combine func(acc, v float64) float64, sumVariance bool) (*variable.Variable, error) {
	buf := b.BinBuffer()
	if buf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: op, Reason: "binned reduction on a multi-dimensional bin buffer"}
	}
	pairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	data, err := buf.Float64Data()
	if err != nil {
		return nil, err
	}
	variances, _ := buf.Float64Variances()
	out, err := variable.MakeVariable(b.Dims(), buf.Unit(), dtype.Float64, variances != nil)
	if err != nil {
		return nil, err
	}
	outData, _ := out.Float64Data()
	outVar, _ := out.Float64Variances()
	for i, p := range pairs {
		acc := identity
		var accVar float64
		for e := p.Begin; e < p.End; e++ {
			f := buf.Offset() + e*buf.Strides()[0]
			acc = combine(acc, data[f])
			if variances != nil && sumVariance {
				accVar += variances[f]
			}
		}
		outData[i] = acc
		if outVar != nil {
			outVar[i] = accVar
		}
	}
	return out, nil
}

func binsExtremum(b *variable.Variable, op string, identity float64, better func(cur, cand float64) bool) (*variable.Variable, error) {
	buf := b.BinBuffer()
	if buf.Dims().Rank() != 1 {
		return nil, &errs.NotImplementedError{Op: op, Reason: "binned reduction on a multi-dimensional bin buffer"}
	}
	pairs, err := b.IndexPairs()
	if err != nil {
		return nil, err
	}
	data, err := buf.Float64Data()
	if err != nil {
		return nil, err
	}
	out, err := variable.MakeVariable(b.Dims(), buf.Unit(), dtype.Float64, false)
	if err != nil {
		return nil, err
	}
	outData, _ := out.Float64Data()
	for i, p := range pairs {
		cur := identity
		for e := p.Begin; e < p.End; e++ {
			f := buf.Offset() + e*buf.Strides()[0]
			if better(cur, data[f]) {
				cur = data[f]
			}
		}
		outData[i] = cur
	}
	return out, nil
}
