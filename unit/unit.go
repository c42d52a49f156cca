// Package unit implements the physical-unit algebra of spec.md §4.1.
// It is grounded on gonum's historical unit package: the SI base
// dimensions and Dimension/Dimensions pattern of unittype.go and
// unit.go, and its map-literal constructor style (unit.New(unit.Dimensions{...})).
// Unlike gonum's unit.Unit, a nscipp Unit carries no numeric value —
// it is a pure unit tag attached to a Variable, the way a Variable's
// dtype or Dimensions are tags rather than data.
package unit

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nscipp/nscipp/errs"
)

// Dimension is an SI base dimension or another orthogonal dimension
// registered with NewDimension. It must never be constructed from a
// bare int outside this package, mirroring the warning in gonum's
// unittype.go doc comment.
type Dimension int

const (
	reserved Dimension = iota
	CurrentDim
	LengthDim
	LuminousIntensityDim
	MassDim
	TemperatureDim
	TimeDim
	ChemAmountDim
	AngleDim // radians; degrees are tracked separately, see Unit.deg
	CountDim // "counts", a detector-event count — not SI, but closed under the same algebra
)

var (
	mu      sync.Mutex
	symbols = map[Dimension]string{
		CurrentDim:           "A",
		LengthDim:            "m",
		LuminousIntensityDim: "cd",
		MassDim:              "kg",
		TemperatureDim:       "K",
		TimeDim:              "s",
		ChemAmountDim:        "mol",
		AngleDim:             "rad",
		CountDim:             "counts",
	}
	nextCustom = Dimension(1000)
)

// NewDimension registers a new orthogonal dimension with the given
// display symbol and returns its Dimension. Typically called once
// from an init function for a domain-specific unit, as gonum's
// unittype.go documents for unit.NewDimension.
func NewDimension(symbol string) Dimension {
	mu.Lock()
	defer mu.Unlock()
	d := nextCustom
	nextCustom++
	symbols[d] = symbol
	return d
}

func (d Dimension) String() string {
	mu.Lock()
	s, ok := symbols[d]
	mu.Unlock()
	if !ok {
		return "<unknown dimension>"
	}
	return s
}

// Dimensions maps base dimensions to their exponent in a unit, e.g.
// {LengthDim: 1, TimeDim: -2} for acceleration.
type Dimensions map[Dimension]int

// Unit is an immutable physical unit: a set of base-dimension
// exponents plus the handful of non-multiplicative special cases
// spec.md §4.1 calls out (none vs. dimensionless, radians vs.
// degrees).
type Unit struct {
	dims Dimensions
	none bool // true only for the special "unit not meaningful" sentinel
	deg  bool // true when this is an AngleDim^1 unit expressed in degrees rather than radians
}

// New builds a Unit from a set of base-dimension exponents. Exponents
// equal to zero are dropped.
func New(d Dimensions) Unit {
	out := Unit{dims: Dimensions{}}
	for k, v := range d {
		if v != 0 {
			out.dims[k] = v
		}
	}
	return out
}

// Dimensionless is the multiplicative identity unit: "this quantity
// has no physical dimension", e.g. a ratio.
var Dimensionless = Unit{dims: Dimensions{}}

// None means "this unit is not meaningful" — e.g. the unit of a
// string-valued or boolean-valued Variable. It is disjoint from
// Dimensionless under Equal, but multiplying or dividing by None
// behaves as the identity (spec.md §4.1).
var None = Unit{dims: Dimensions{}, none: true}

// Base unit constructors, one per SI base dimension plus the two
// domain extensions (counts, angle).
var (
	Meter    = New(Dimensions{LengthDim: 1})
	Second   = New(Dimensions{TimeDim: 1})
	Kilogram = New(Dimensions{MassDim: 1})
	Ampere   = New(Dimensions{CurrentDim: 1})
	Kelvin   = New(Dimensions{TemperatureDim: 1})
	Mole     = New(Dimensions{ChemAmountDim: 1})
	Candela  = New(Dimensions{LuminousIntensityDim: 1})
	Counts   = New(Dimensions{CountDim: 1})
	Radian   = Unit{dims: Dimensions{AngleDim: 1}}
	Degree   = Unit{dims: Dimensions{AngleDim: 1}, deg: true}
)

// IsNone reports whether u is the None sentinel.
func (u Unit) IsNone() bool { return u.none }

// IsDimensionless reports whether u has no remaining dimension and is
// not None.
func (u Unit) IsDimensionless() bool { return !u.none && len(u.dims) == 0 }

// IsAngle reports whether u is exactly AngleDim^1, and if so whether
// it is expressed in degrees (as opposed to radians).
func (u Unit) IsAngle() (isAngle, degrees bool) {
	if u.none || len(u.dims) != 1 {
		return false, false
	}
	e, ok := u.dims[AngleDim]
	return ok && e == 1, u.deg
}

// Mul returns the unit of a quantity with unit u multiplied by one
// with unit v. None behaves as the multiplicative identity.
func (u Unit) Mul(v Unit) Unit {
	if u.none {
		return v
	}
	if v.none {
		return u
	}
	out := Unit{dims: Dimensions{}}
	for k, e := range u.dims {
		out.dims[k] += e
	}
	for k, e := range v.dims {
		out.dims[k] += e
	}
	for k, e := range out.dims {
		if e == 0 {
			delete(out.dims, k)
		}
	}
	return out
}

// Div returns the unit of a quantity with unit u divided by one with
// unit v. None behaves as the multiplicative identity.
func (u Unit) Div(v Unit) Unit {
	return u.Mul(v.Pow(-1))
}

// Pow returns u raised to the integer power n. None raised to any
// power is None.
func (u Unit) Pow(n int) Unit {
	if u.none {
		return u
	}
	out := Unit{dims: Dimensions{}, deg: u.deg}
	if n == 0 {
		return Dimensionless
	}
	for k, e := range u.dims {
		out.dims[k] = e * n
	}
	return out
}

// Equal reports whether u and v are the same unit. None compares
// equal only to None, and never to Dimensionless, even though both
// have an empty dimension set (spec.md §4.1).
func (u Unit) Equal(v Unit) bool {
	if u.none != v.none {
		return false
	}
	if u.none && v.none {
		return true
	}
	if u.deg != v.deg {
		return false
	}
	if len(u.dims) != len(v.dims) {
		return false
	}
	for k, e := range u.dims {
		if v.dims[k] != e {
			return false
		}
	}
	return true
}

// CheckEqual returns a *errs.UnitError if u and v are not Equal,
// tagged with op for diagnostics; otherwise nil. This is the
// "incompatible units fail with UnitError" rule of spec.md §4.1 used
// directly by transform's unit rules.
func CheckEqual(op string, u, v Unit) error {
	if u.Equal(v) {
		return nil
	}
	return &errs.UnitError{Op: op, Want: u.String(), Got: v.String()}
}

// String renders u as e.g. "m s^-2", "counts", "none",
// "dimensionless", "rad" or "deg", matching the exponent-suffix
// notation of gonum's legacy unit.Unit.Format (length.go/unittype.go).
func (u Unit) String() string {
	if u.none {
		return "none"
	}
	if isAngle, deg := u.IsAngle(); isAngle {
		if deg {
			return "deg"
		}
		return "rad"
	}
	if len(u.dims) == 0 {
		return "dimensionless"
	}
	keys := make([]Dimension, 0, len(u.dims))
	for k := range u.dims {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	var parts []string
	for _, k := range keys {
		e := u.dims[k]
		if e == 1 {
			parts = append(parts, k.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s^%d", k, e))
		}
	}
	return strings.Join(parts, " ")
}
