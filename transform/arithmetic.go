package transform

import (
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// floatFloat names the (f64,f64), (f32,f32) and (f64,f32) operand
// tuples spec.md §4.4 step 1 gives as its allow-list example,
// including the f32/f64 crossed order so Add(f32, f64) type-checks
// the same as Add(f64, f32).
var floatFloat = []DtypeTuple{
	{dtype.Float64, dtype.Float64},
	{dtype.Float32, dtype.Float32},
	{dtype.Float64, dtype.Float32},
	{dtype.Float32, dtype.Float64},
}
var floatOnly = []DtypeTuple{{dtype.Float64}, {dtype.Float32}}

func reciprocalUnit(in ...unit.Unit) (unit.Unit, error) {
	if len(in) == 0 {
		return unit.Dimensionless, nil
	}
	return in[0].Pow(-1), nil
}

// AddOp is spec.md §6's `+`.
var AddOp = Op{Name: "add", Allow: floatFloat, Unit: SameUnit, Parallel: true}

// SubOp is spec.md §6's binary `-`.
var SubOp = Op{Name: "subtract", Allow: floatFloat, Unit: SameUnit, Parallel: true}

// MulOp is spec.md §6's `*`.
var MulOp = Op{Name: "multiply", Allow: floatFloat, Unit: MulUnit, Parallel: true}

// DivOp is spec.md §6's `/`.
var DivOp = Op{Name: "divide", Allow: floatFloat, Unit: DivUnit, Parallel: true}

// NegOp is spec.md §6's unary `-`.
var NegOp = Op{Name: "negate", Allow: floatOnly, Unit: AnyUnit, Parallel: true}

// ReciprocalOp is spec.md §6's `reciprocal`.
var ReciprocalOp = Op{Name: "reciprocal", Allow: floatOnly, Unit: reciprocalUnit, Parallel: true}

// Add returns a+b (spec.md §4.4's `a+b: var = σa+σb`).
func Add(a, b *variable.Variable) (*variable.Variable, error) {
	return Binary(AddOp, a, b, AddVV)
}

// AddInPlace computes out = a+b, guarding aliasing per spec.md §4.4
// step 5.
func AddInPlace(out, a, b *variable.Variable) error {
	return BinaryInPlace(AddOp, out, a, b, AddVV)
}

// Sub returns a-b.
func Sub(a, b *variable.Variable) (*variable.Variable, error) {
	return Binary(SubOp, a, b, SubVV)
}

// SubInPlace computes out = a-b.
func SubInPlace(out, a, b *variable.Variable) error {
	return BinaryInPlace(SubOp, out, a, b, SubVV)
}

// Mul returns a*b (spec.md §4.4's `a*b: var = σa·b² + σb·a²`).
func Mul(a, b *variable.Variable) (*variable.Variable, error) {
	return Binary(MulOp, a, b, MulVV)
}

// MulInPlace computes out = a*b.
func MulInPlace(out, a, b *variable.Variable) error {
	return BinaryInPlace(MulOp, out, a, b, MulVV)
}

// Div returns a/b (spec.md §4.4's `a/b` rule, a==0 guarded).
func Div(a, b *variable.Variable) (*variable.Variable, error) {
	return Binary(DivOp, a, b, DivVV)
}

// DivInPlace computes out = a/b.
func DivInPlace(out, a, b *variable.Variable) error {
	return BinaryInPlace(DivOp, out, a, b, DivVV)
}

// Neg returns -a.
func Neg(a *variable.Variable) (*variable.Variable, error) {
	return Unary(NegOp, a, func(x ValueAndVariance) ValueAndVariance {
		return ValueAndVariance{Value: -x.Value, Variance: x.Variance}
	})
}

// Reciprocal returns 1/a, the a==0-guarded special case of DivVV with
// a fixed numerator of 1 and no numerator variance.
func Reciprocal(a *variable.Variable) (*variable.Variable, error) {
	return Unary(ReciprocalOp, a, func(x ValueAndVariance) ValueAndVariance {
		return DivVV(ValueAndVariance{Value: 1}, x)
	})
}
