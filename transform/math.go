package transform

import (
	"math"

	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// applyUnary wraps a stdlib math function (and its derivative, for
// variance propagation) as a transform.Op the way floats.Apply(f, s)
// wraps a bare math.Exp/math.Sin over a flat slice.
func applyUnary(name string, unitRule UnitRule, f, fPrime func(float64) float64) func(*variable.Variable) (*variable.Variable, error) {
	op := Op{Name: name, Allow: floatOnly, Unit: unitRule, Parallel: true}
	return func(a *variable.Variable) (*variable.Variable, error) {
		return Unary(op, a, func(x ValueAndVariance) ValueAndVariance {
			return UnaryVV(x, f, fPrime)
		})
	}
}

// Abs is spec.md §6's `abs`.
var Abs = applyUnary("abs", AnyUnit, math.Abs, func(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
})

// Sqrt is spec.md §6's `sqrt`. Since nscipp's Unit exponents are
// integral (spec.md §4.1) and Unit exposes no fractional-power
// accessor, Sqrt is only defined for dimensionless (or None) operands
// rather than attempting a general u^(1/2).
func Sqrt(a *variable.Variable) (*variable.Variable, error) {
	op := Op{Name: "sqrt", Allow: floatOnly, Unit: sqrtUnit, Parallel: true}
	return Unary(op, a, func(x ValueAndVariance) ValueAndVariance {
		return UnaryVV(x, math.Sqrt, func(v float64) float64 { return 0.5 / math.Sqrt(v) })
	})
}

func sqrtUnit(in ...unit.Unit) (unit.Unit, error) {
	if len(in) == 0 {
		return unit.Dimensionless, nil
	}
	u := in[0]
	if u.IsDimensionless() || u.IsNone() {
		return u, nil
	}
	return unit.Unit{}, &errs.UnitError{Op: "sqrt", Want: "dimensionless", Got: u.String()}
}

// Sin is spec.md §6's `sin`, rad/deg aware per unit.Unit.IsAngle.
func Sin(a *variable.Variable) (*variable.Variable, error) { return trig(a, "sin", math.Sin, math.Cos) }

// Cos is spec.md §6's `cos`.
func Cos(a *variable.Variable) (*variable.Variable, error) {
	return trig(a, "cos", math.Cos, func(x float64) float64 { return -math.Sin(x) })
}

// Tan is spec.md §6's `tan`.
func Tan(a *variable.Variable) (*variable.Variable, error) {
	return trig(a, "tan", math.Tan, func(x float64) float64 { c := math.Cos(x); return 1 / (c * c) })
}

func trig(a *variable.Variable, name string, f, fPrime func(float64) float64) (*variable.Variable, error) {
	isAngle, degrees := a.Unit().IsAngle()
	if !isAngle {
		return nil, &errs.UnitError{Op: name, Want: "radian or degree", Got: a.Unit().String()}
	}
	conv := 1.0
	if degrees {
		conv = math.Pi / 180
	}
	toDimensionless := func(in ...unit.Unit) (unit.Unit, error) { return unit.Dimensionless, nil }
	op := Op{Name: name, Allow: floatOnly, Unit: toDimensionless, Parallel: true}
	return Unary(op, a, func(x ValueAndVariance) ValueAndVariance {
		rad := x.Value * conv
		return ValueAndVariance{Value: f(rad), Variance: fPrime(rad) * fPrime(rad) * conv * conv * x.Variance}
	})
}

// Asin is spec.md §6's `asin`, producing a radian-unit result.
func Asin(a *variable.Variable) (*variable.Variable, error) {
	return invTrig(a, "asin", math.Asin, func(x float64) float64 { return 1 / math.Sqrt(1-x*x) })
}

// Acos is spec.md §6's `acos`.
func Acos(a *variable.Variable) (*variable.Variable, error) {
	return invTrig(a, "acos", math.Acos, func(x float64) float64 { return -1 / math.Sqrt(1-x*x) })
}

// Atan is spec.md §6's `atan`.
func Atan(a *variable.Variable) (*variable.Variable, error) {
	return invTrig(a, "atan", math.Atan, func(x float64) float64 { return 1 / (1 + x*x) })
}

func dimensionlessToRadian(in ...unit.Unit) (unit.Unit, error) {
	if _, err := DimensionlessUnit(in...); err != nil {
		return unit.Unit{}, err
	}
	return unit.Radian, nil
}

func invTrig(a *variable.Variable, name string, f, fPrime func(float64) float64) (*variable.Variable, error) {
	op := Op{Name: name, Allow: floatOnly, Unit: dimensionlessToRadian, Parallel: true}
	return Unary(op, a, func(x ValueAndVariance) ValueAndVariance {
		return UnaryVV(x, f, fPrime)
	})
}

func atan2Unit(in ...unit.Unit) (unit.Unit, error) {
	if _, err := SameUnit(in...); err != nil {
		return unit.Unit{}, err
	}
	return unit.Radian, nil
}

// Atan2 is spec.md §6's `atan2(y, x)`, producing a radian-unit result.
func Atan2(y, x *variable.Variable) (*variable.Variable, error) {
	op := Op{Name: "atan2", Allow: floatFloat, Unit: atan2Unit, Parallel: true}
	return Binary(op, y, x, func(yv, xv ValueAndVariance) ValueAndVariance {
		denom := xv.Value*xv.Value + yv.Value*yv.Value
		dfdy := xv.Value / denom
		dfdx := -yv.Value / denom
		return ValueAndVariance{
			Value:    math.Atan2(yv.Value, xv.Value),
			Variance: dfdy*dfdy*yv.Variance + dfdx*dfdx*xv.Variance,
		}
	})
}

// Sinh is spec.md §6's `sinh`.
func Sinh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("sinh", DimensionlessUnit, math.Sinh, math.Cosh)(a)
}

// Cosh is spec.md §6's `cosh`.
func Cosh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("cosh", DimensionlessUnit, math.Cosh, math.Sinh)(a)
}

// Tanh is spec.md §6's `tanh`.
func Tanh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("tanh", DimensionlessUnit, math.Tanh, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})(a)
}

// Asinh is spec.md §6's `asinh`.
func Asinh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("asinh", DimensionlessUnit, math.Asinh, func(x float64) float64 {
		return 1 / math.Sqrt(x*x+1)
	})(a)
}

// Acosh is spec.md §6's `acosh`.
func Acosh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("acosh", DimensionlessUnit, math.Acosh, func(x float64) float64 {
		return 1 / math.Sqrt(x*x-1)
	})(a)
}

// Atanh is spec.md §6's `atanh`.
func Atanh(a *variable.Variable) (*variable.Variable, error) {
	return applyUnary("atanh", DimensionlessUnit, math.Atanh, func(x float64) float64 {
		return 1 / (1 - x*x)
	})(a)
}

// Norm is spec.md §6's `norm`: the elementwise Euclidean length of a
// dtype.Vector3 Variable, producing a dtype.Float64 result of the same
// dims and unit (a vector's norm has the same unit as its components).
// Vector3 carries no variances (spec.md §4.1), so the result never
// does either.
func Norm(a *variable.Variable) (*variable.Variable, error) {
	src, err := a.Vector3Data()
	if err != nil {
		return nil, &errs.TypeError{Op: "norm", Dtype: a.Dtype().String()}
	}
	out, err := variable.MakeVariable(a.Dims(), a.Unit(), dtype.Float64, false)
	if err != nil {
		return nil, err
	}
	dst, _ := out.Float64Data()
	shape := a.Dims().Shape()
	idx := make([]int, len(shape))
	n := a.Dims().Volume()
	for i := 0; i < n; i++ {
		af := a.Offset() + flat(a.Strides(), idx)
		of := out.Offset() + flat(out.Strides(), idx)
		dst[of] = src[af].Norm()
		advance(idx, shape)
	}
	return out, nil
}

// Astype is spec.md §6's `astype`: returns a copy when a already has
// dtype to, and converts a Float64 Variable to Bool (x != 0); every
// other conversion, Bool to Float64 included, is NotImplementedError.
func Astype(a *variable.Variable, to dtype.Dtype) (*variable.Variable, error) {
	if a.Dtype() == to {
		return a.Copy(), nil
	}
	if a.Dtype() == dtype.Float64 && to == dtype.Bool {
		out, err := variable.MakeVariable(a.Dims(), unit.None, dtype.Bool, false)
		if err != nil {
			return nil, err
		}
		src, _ := a.Float64Data()
		dst, _ := out.BoolData()
		shape := a.Dims().Shape()
		idx := make([]int, len(shape))
		n := a.Dims().Volume()
		for i := 0; i < n; i++ {
			af := a.Offset() + flat(a.Strides(), idx)
			of := out.Offset() + flat(out.Strides(), idx)
			dst[of] = src[af] != 0
			advance(idx, shape)
		}
		return out, nil
	}
	return nil, &errs.NotImplementedError{Op: "astype", Reason: "conversion " + a.Dtype().String() + " to " + to.String() + " is not supported"}
}
