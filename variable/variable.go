// Package variable implements Variable, VariableView and BinIndices,
// the heart of spec.md §3–§4.3. It is grounded on gonum's mat.VecDense
// / mat.Dense family (mat/vector.go): a shared backing Buffer plus a
// strides/offset pair describing how a (possibly non-contiguous) view
// reads that buffer, with NewVecDense/SliceVec's "share unless told
// otherwise" semantics generalized from a hardcoded rank-2 matrix
// layout to nscipp's rank-polymorphic Dimensions.
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

// Variable is an owned or shared, typed, multi-dimensional array: the
// dtype tag plus type-erased buffer handle of spec.md §9, carrying
// named Dimensions, a Unit, optional variances, and an optional
// binned (ragged) mode.
type Variable struct {
	dtype   dtype.Dtype
	dims    dimensions.Dimensions
	strd    strides
	offset  int
	unit    unit.Unit
	values  buffer.Untyped
	variances buffer.Untyped // nil if absent

	// Binned mode (spec.md §4.5). When binBuffer != nil, values holds
	// one spatial3.IndexPair per element of dims (shape == dims),
	// binDim names the dimension inside binBuffer a bin is contiguous
	// along, and binBuffer stores the ragged event payload.
	binDim    dim.Dim
	binBuffer *Variable

	readOnly bool
}

// Dtype returns v's element type tag.
func (v *Variable) Dtype() dtype.Dtype { return v.dtype }

// Dims returns v's Dimensions.
func (v *Variable) Dims() dimensions.Dimensions { return v.dims }

// Unit returns v's physical unit.
func (v *Variable) Unit() unit.Unit { return v.unit }

// SetUnit replaces v's unit in place without touching data, the
// external-interface `set_unit` operation of spec.md §6.
func (v *Variable) SetUnit(u unit.Unit) { v.unit = u }

// HasVariances reports whether v carries a variances buffer.
func (v *Variable) HasVariances() bool { return v.variances != nil }

// IsBinned reports whether v is in binned (ragged) mode.
func (v *Variable) IsBinned() bool { return v.binBuffer != nil }

// BinDim returns the dimension inside the bin buffer a bin is
// contiguous along. Only meaningful if IsBinned.
func (v *Variable) BinDim() dim.Dim { return v.binDim }

// BinBuffer returns the underlying ragged-event Variable. Only
// meaningful if IsBinned; returns nil otherwise.
func (v *Variable) BinBuffer() *Variable { return v.binBuffer }

// ReadOnly reports whether v forbids in-place mutation (e.g. a view
// produced by a non-range single-index slice, or an explicitly
// read-only capability).
func (v *Variable) ReadOnly() bool { return v.readOnly }

// Strides returns the strides, counted in elements rather than bytes,
// in storage order. A 0 stride marks a broadcast dim.
func (v *Variable) Strides() []int { return append([]int(nil), v.strd...) }

// Offset returns the element offset into the backing buffer.
func (v *Variable) Offset() int { return v.offset }

// Values returns the type-erased backing buffer of values.
func (v *Variable) Values() buffer.Untyped { return v.values }

// Variances returns the type-erased backing buffer of variances, or
// nil.
func (v *Variable) Variances() buffer.Untyped { return v.variances }

// rank returns the number of dims.
func (v *Variable) rank() int { return v.dims.Rank() }

// ---- constructors ----

func newDense(dims dimensions.Dimensions, u unit.Unit, dt dtype.Dtype, values, variances buffer.Untyped) *Variable {
	return &Variable{
		dtype:     dt,
		dims:      dims,
		strd:      canonicalStrides(dims.Shape()),
		unit:      u,
		values:    values,
		variances: variances,
	}
}

// MakeVariable allocates a zeroed dense Variable of the given shape,
// unit and dtype, with a variances buffer iff withVariances is true
// (spec.md §6 make_variable).
func MakeVariable(dims dimensions.Dimensions, u unit.Unit, dt dtype.Dtype, withVariances bool) (*Variable, error) {
	n := dims.Volume()
	values, err := newZeroBuffer(dt, n)
	if err != nil {
		return nil, err
	}
	var variances buffer.Untyped
	if withVariances {
		if !dt.IsFloat() {
			return nil, &errs.VariancesError{Op: "MakeVariable", Reason: fmt.Sprintf("dtype %s cannot carry variances", dt)}
		}
		variances, _ = newZeroBuffer(dt, n)
	}
	return newDense(dims, u, dt, values, variances), nil
}

// Empty is an alias for MakeVariable matching spec.md §6's
// `empty(dims, unit, dtype, variances)` constructor name.
func Empty(dims dimensions.Dimensions, u unit.Unit, dt dtype.Dtype, withVariances bool) (*Variable, error) {
	return MakeVariable(dims, u, dt, withVariances)
}

// Ones returns a dense float64 Variable of the given shape and unit
// filled with 1, optionally carrying a zeroed variances buffer.
func Ones(dims dimensions.Dimensions, u unit.Unit, withVariances bool) (*Variable, error) {
	v, err := MakeVariable(dims, u, dtype.Float64, withVariances)
	if err != nil {
		return nil, err
	}
	data := v.values.(*buffer.Buffer[float64]).Data()
	for i := range data {
		data[i] = 1
	}
	return v, nil
}

// ZerosLike returns a zeroed Variable with the same dims, unit, dtype
// and variance-presence as v, but freshly owned storage.
func ZerosLike(v *Variable) (*Variable, error) {
	return MakeVariable(v.dims, v.unit, v.dtype, v.HasVariances())
}

// FromValuesFloat64 builds a dense float64 Variable from flat,
// row-major values (and optional variances), the common case of
// spec.md §6's `from_values`.
func FromValuesFloat64(dims dimensions.Dimensions, u unit.Unit, values []float64, variances []float64) (*Variable, error) {
	n := dims.Volume()
	if len(values) != n {
		return nil, &errs.DimensionError{Op: "FromValuesFloat64", Reason: fmt.Sprintf("len(values)=%d does not match volume=%d", len(values), n)}
	}
	var varBuf buffer.Untyped
	if variances != nil {
		if len(variances) != n {
			return nil, &errs.VariancesError{Op: "FromValuesFloat64", Reason: fmt.Sprintf("len(variances)=%d does not match volume=%d", len(variances), n)}
		}
		varBuf = buffer.FromSlice(append([]float64(nil), variances...))
	}
	return newDense(dims, u, dtype.Float64, buffer.FromSlice(append([]float64(nil), values...)), varBuf), nil
}

// FromValuesBool builds a dense dtype.Bool Variable from flat,
// row-major values, typically used for masks (spec.md §4.6).
func FromValuesBool(dims dimensions.Dimensions, values []bool) (*Variable, error) {
	n := dims.Volume()
	if len(values) != n {
		return nil, &errs.DimensionError{Op: "FromValuesBool", Reason: fmt.Sprintf("len(values)=%d does not match volume=%d", len(values), n)}
	}
	return newDense(dims, unit.None, dtype.Bool, buffer.FromSlice(append([]bool(nil), values...)), nil), nil
}

// FromValuesString builds a dense dtype.String Variable from flat,
// row-major values, typically used for categorical coords consumed
// by groupby (spec.md §4.8).
func FromValuesString(dims dimensions.Dimensions, values []string) (*Variable, error) {
	n := dims.Volume()
	if len(values) != n {
		return nil, &errs.DimensionError{Op: "FromValuesString", Reason: fmt.Sprintf("len(values)=%d does not match volume=%d", len(values), n)}
	}
	return newDense(dims, unit.None, dtype.String, buffer.FromSlice(append([]string(nil), values...)), nil), nil
}

// FromValuesVector3 builds a dense dtype.Vector3 Variable from flat,
// row-major values, e.g. a position coord consumed by transform.Norm.
func FromValuesVector3(dims dimensions.Dimensions, u unit.Unit, values []spatial3.Vector3) (*Variable, error) {
	n := dims.Volume()
	if len(values) != n {
		return nil, &errs.DimensionError{Op: "FromValuesVector3", Reason: fmt.Sprintf("len(values)=%d does not match volume=%d", len(values), n)}
	}
	return newDense(dims, u, dtype.Vector3, buffer.FromSlice(append([]spatial3.Vector3(nil), values...)), nil), nil
}

// ScalarFloat64 returns a 0-D (scalar) float64 Variable.
func ScalarFloat64(value float64, u unit.Unit, variance *float64) *Variable {
	var varBuf buffer.Untyped
	if variance != nil {
		varBuf = buffer.FromSlice([]float64{*variance})
	}
	return newDense(dimensions.Dimensions{}, u, dtype.Float64, buffer.FromSlice([]float64{value}), varBuf)
}

// Arange returns a 1-D float64 Variable [0, 1, ..., n-1] along dim d.
func Arange(d dim.Dim, n int, u unit.Unit) (*Variable, error) {
	var dims dimensions.Dimensions
	if err := dims.Push(d, n); err != nil {
		return nil, err
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return newDense(dims, u, dtype.Float64, buffer.FromSlice(values), nil), nil
}

// Linspace returns n evenly spaced float64 values from a to b
// (inclusive) along dim d.
func Linspace(a, b float64, d dim.Dim, n int, u unit.Unit) (*Variable, error) {
	if n < 2 {
		return nil, &errs.DimensionError{Op: "Linspace", Reason: "n must be >= 2"}
	}
	var dims dimensions.Dimensions
	if err := dims.Push(d, n); err != nil {
		return nil, err
	}
	values := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range values {
		values[i] = a + float64(i)*step
	}
	values[n-1] = b
	return newDense(dims, u, dtype.Float64, buffer.FromSlice(values), nil), nil
}

// newZeroBuffer allocates a zeroed buffer for every dtype a bare
// make_variable call can sensibly produce: the six scalar-ish types
// plus spec.md §3's spatial dtypes, which default-zero the same way a
// freshly allocated Vector3/Matrix3/... value does everywhere else in
// this package. time_point shares int64's representation (see
// materializeCopy/valuesEqual). index_pair and the bin<T>/DataArray/
// Dataset container dtypes are deliberately excluded: they are never
// the dtype of a standalone values buffer constructed this way
// (index_pair only ever backs a binned Variable's own indices, built
// through MakeBins/IndexPairsFromSlice; the bin<T>/DataArray/Dataset
// tags name the *kind* of a nested payload, not an element type
// make_variable could allocate n zeroed copies of).
func newZeroBuffer(dt dtype.Dtype, n int) (buffer.Untyped, error) {
	switch dt {
	case dtype.Float64:
		return buffer.New[float64](n), nil
	case dtype.Float32:
		return buffer.New[float32](n), nil
	case dtype.Int64:
		return buffer.New[int64](n), nil
	case dtype.Int32:
		return buffer.New[int32](n), nil
	case dtype.Bool:
		return buffer.New[bool](n), nil
	case dtype.String:
		return buffer.New[string](n), nil
	case dtype.TimePoint:
		return buffer.New[int64](n), nil
	case dtype.Vector3:
		return buffer.New[spatial3.Vector3](n), nil
	case dtype.Matrix3:
		return buffer.New[spatial3.Matrix3](n), nil
	case dtype.Affine3:
		return buffer.New[spatial3.Affine3](n), nil
	case dtype.Rotation:
		return buffer.New[spatial3.Rotation](n), nil
	case dtype.Translation:
		return buffer.New[spatial3.Translation](n), nil
	default:
		return nil, &errs.TypeError{Op: "MakeVariable", Dtype: dt.String()}
	}
}

// ---- mutation / copy ----

// Copy returns a dense, contiguous, independent Variable with the
// same logical content as v (spec.md §4.3 copy()). Values, variances
// and (if binned) the bin buffer are deep-copied; the result never
// shares storage with v.
func (v *Variable) Copy() *Variable {
	out := &Variable{
		dtype:  v.dtype,
		dims:   v.dims,
		unit:   v.unit,
	}
	out.strd = canonicalStrides(v.dims.Shape())
	if v.IsBinned() {
		out.values = materializeCopy(v, v.values, true)
		out.binDim = v.binDim
		out.binBuffer = v.binBuffer.Copy()
		return out
	}
	out.values = materializeCopy(v, v.values, false)
	if v.variances != nil {
		out.variances = materializeCopy(v, v.variances, false)
	}
	return out
}

// SetVariances replaces v's variances in place. variances may be nil
// to remove them. A non-nil variances Variable must share v's dims,
// dtype and unit (spec.md §4.3 set_variances).
func (v *Variable) SetVariances(variances *Variable) error {
	if variances == nil {
		v.variances = nil
		return nil
	}
	if !variances.dims.Equal(v.dims) {
		return &errs.VariancesError{Op: "SetVariances", Reason: "dims mismatch"}
	}
	if variances.dtype != v.dtype {
		return &errs.VariancesError{Op: "SetVariances", Reason: "dtype mismatch"}
	}
	if !variances.unit.Equal(v.unit) {
		return &errs.VariancesError{Op: "SetVariances", Reason: "unit mismatch"}
	}
	if !v.dtype.IsFloat() {
		return &errs.VariancesError{Op: "SetVariances", Reason: fmt.Sprintf("dtype %s cannot carry variances", v.dtype)}
	}
	// materialize a contiguous copy matching v's own layout so that
	// strides line up element-for-element during iteration.
	copied := variances.Copy()
	v.variances = copied.values
	return nil
}

// RenameDims renames from to to in place (spec.md §4.3 rename).
func (v *Variable) RenameDims(from, to dim.Dim) error {
	return v.dims.Rename(from, to)
}

// String renders a short human-readable summary, the way gonum's
// unit.Unit and r3.Vec implement fmt.Stringer (SPEC_FULL.md §12).
func (v *Variable) String() string {
	return fmt.Sprintf("Variable(dims=%s, unit=%s, dtype=%s)", v.dims, v.unit, v.dtype)
}
