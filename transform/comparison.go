package transform

import (
	"math"

	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// compareOp is like Binary but always produces a dtype.Bool output
// with no variances, the shape every comparison in spec.md §6 shares.
// Operands may independently be dtype.Float64 or dtype.Float32 (the
// same (f64,f64)/(f32,f32)/(f64,f32) tuples Binary's arithmetic ops
// accept), widened to float64 for the predicate.
func compareOp(name string, a, b *variable.Variable, pred func(x, y float64) bool) (*variable.Variable, error) {
	if !a.Dtype().IsFloat() || !b.Dtype().IsFloat() {
		return nil, &errs.TypeError{Op: name, Dtype: a.Dtype().String() + "," + b.Dtype().String()}
	}
	if err := unit.CheckEqual(name, a.Unit(), b.Unit()); err != nil {
		return nil, err
	}
	outDims, err := dimensions.Union(a.Dims(), b.Dims())
	if err != nil {
		return nil, err
	}
	aB, err := broadcastTo(a, outDims)
	if err != nil {
		return nil, err
	}
	bB, err := broadcastTo(b, outDims)
	if err != nil {
		return nil, err
	}
	out, err := variable.MakeVariable(outDims, unit.None, dtype.Bool, false)
	if err != nil {
		return nil, err
	}
	aData, err := aB.FloatValues()
	if err != nil {
		return nil, err
	}
	bData, err := bB.FloatValues()
	if err != nil {
		return nil, err
	}
	outData, err := out.BoolData()
	if err != nil {
		return nil, err
	}
	shape := outDims.Shape()
	n := outDims.Volume()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		of := out.Offset() + flat(out.Strides(), idx)
		af := aB.Offset() + flat(aB.Strides(), idx)
		bf := bB.Offset() + flat(bB.Strides(), idx)
		outData[of] = pred(aData.Get(af), bData.Get(bf))
		advance(idx, shape)
	}
	return out, nil
}

// Eq is spec.md §6's `==`.
func Eq(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("equal", a, b, func(x, y float64) bool { return x == y })
}

// Ne is spec.md §6's `!=`.
func Ne(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("not_equal", a, b, func(x, y float64) bool { return x != y })
}

// Lt is spec.md §6's `<`.
func Lt(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("less", a, b, func(x, y float64) bool { return x < y })
}

// Le is spec.md §6's `<=`.
func Le(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("less_equal", a, b, func(x, y float64) bool { return x <= y })
}

// Gt is spec.md §6's `>`.
func Gt(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("greater", a, b, func(x, y float64) bool { return x > y })
}

// Ge is spec.md §6's `>=`.
func Ge(a, b *variable.Variable) (*variable.Variable, error) {
	return compareOp("greater_equal", a, b, func(x, y float64) bool { return x >= y })
}

// IsClose is spec.md §6's `isclose(a, b, rtol, atol)`, grounded on
// floats.go's EqualWithinAbs/EqualWithinRel combined the way
// floats.EqualApprox combines an absolute and relative tolerance.
func IsClose(a, b *variable.Variable, rtol, atol float64) (*variable.Variable, error) {
	return compareOp("isclose", a, b, func(x, y float64) bool {
		diff := math.Abs(x - y)
		if diff <= atol {
			return true
		}
		return diff <= rtol*math.Max(math.Abs(x), math.Abs(y))
	})
}
