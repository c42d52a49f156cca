package transform

import (
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
)

// VarianceFlag names one of the variance policy checks of spec.md
// §4.4 step 4. Flags are combined with bitwise OR on an Op.
type VarianceFlag uint

const (
	// NoOutVariance strips variances on the output even if inputs
	// carry them.
	NoOutVariance VarianceFlag = 1 << iota
	// ExpectAllOrNoneHaveVariance requires every input to agree on
	// whether it carries variances.
	ExpectAllOrNoneHaveVariance
	// ExpectInVarianceIfOutVariance requires every input to carry
	// variances whenever an in-place out does.
	ExpectInVarianceIfOutVariance
	// ForceVarianceBroadcast permits broadcasting a variance-carrying
	// operand, normally refused because broadcasting duplicates
	// variances and violates propagation's independence assumption.
	ForceVarianceBroadcast
	// ExpectVarianceArg0 requires the first operand to carry
	// variances.
	ExpectVarianceArg0
	// ExpectVarianceArg1 requires the second operand to carry
	// variances.
	ExpectVarianceArg1
	// ExpectNoVarianceArg0 requires the first operand to carry no
	// variances.
	ExpectNoVarianceArg0
	// ExpectNoVarianceArg1 requires the second operand to carry no
	// variances.
	ExpectNoVarianceArg1
)

// UnitRule computes the output unit from the operand units, or
// returns an error (e.g. mismatched units for +) before any data is
// touched (spec.md §4.4 step 2).
type UnitRule func(in ...unit.Unit) (unit.Unit, error)

// DtypeTuple is one allowed combination of input element types
// (spec.md §4.4 step 1's "allow-list of element tuples").
type DtypeTuple []dtype.Dtype

// Op describes one transform kernel: its allowed input dtype
// combinations, its unit rule, and its variance policy. It is the
// generalization of a single floats.go free function (Add, Mul, ...)
// into a self-describing, dispatchable value.
type Op struct {
	Name     string
	Allow    []DtypeTuple
	Unit     UnitRule
	Flags    VarianceFlag
	Parallel bool // spec.md §5: safe to partition the outer dim across goroutines
}

// Allows reports whether in matches one of op's declared dtype
// tuples.
func (op Op) Allows(in ...dtype.Dtype) bool {
	for _, tuple := range op.Allow {
		if len(tuple) != len(in) {
			continue
		}
		match := true
		for i := range tuple {
			if tuple[i] != in[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (f VarianceFlag) has(flag VarianceFlag) bool { return f&flag != 0 }

// SameUnit is a UnitRule requiring every operand to share an equal
// unit, returning that unit unchanged (the rule for +, -, comparisons).
func SameUnit(in ...unit.Unit) (unit.Unit, error) {
	if len(in) == 0 {
		return unit.Dimensionless, nil
	}
	want := in[0]
	for _, u := range in[1:] {
		if err := unit.CheckEqual("transform", want, u); err != nil {
			return unit.Unit{}, err
		}
	}
	return want, nil
}

// MulUnit is a UnitRule multiplying every operand's unit (the rule
// for *).
func MulUnit(in ...unit.Unit) (unit.Unit, error) {
	out := unit.Dimensionless
	for _, u := range in {
		out = out.Mul(u)
	}
	return out, nil
}

// DivUnit is a UnitRule dividing in[0] by the remaining operands in
// order (the rule for /).
func DivUnit(in ...unit.Unit) (unit.Unit, error) {
	if len(in) == 0 {
		return unit.Dimensionless, nil
	}
	out := in[0]
	for _, u := range in[1:] {
		out = out.Div(u)
	}
	return out, nil
}

// DimensionlessUnit is a UnitRule requiring every operand to be
// dimensionless (the rule for hyperbolic functions and the inputs of
// inverse trig functions) and returning
// Dimensionless.
func DimensionlessUnit(in ...unit.Unit) (unit.Unit, error) {
	for _, u := range in {
		if !u.IsDimensionless() {
			return unit.Unit{}, &errs.UnitError{Op: "transform", Want: unit.Dimensionless.String(), Got: u.String()}
		}
	}
	return unit.Dimensionless, nil
}

// AnyUnit is a UnitRule that imposes no constraint and returns in[0]
// unchanged (e.g. abs, negate).
func AnyUnit(in ...unit.Unit) (unit.Unit, error) {
	if len(in) == 0 {
		return unit.Dimensionless, nil
	}
	return in[0], nil
}

// BoolUnit is a UnitRule for comparisons and logical ops: operands
// must share a unit but the result carries None since a bool has no
// physical unit.
func BoolUnit(in ...unit.Unit) (unit.Unit, error) {
	if _, err := SameUnit(in...); err != nil {
		return unit.Unit{}, err
	}
	return unit.None, nil
}
