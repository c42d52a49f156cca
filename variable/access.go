package variable

import (
	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/spatial3"
)

// Float64Data returns the raw backing slice of a dtype.Float64
// Variable's values, to be read/written through v.Strides()/Offset().
func (v *Variable) Float64Data() ([]float64, error) {
	b, ok := v.values.(*buffer.Buffer[float64])
	if !ok {
		return nil, &errs.TypeError{Op: "Float64Data", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Float64Variances returns the raw backing slice of variances, or nil
// if v carries none.
func (v *Variable) Float64Variances() ([]float64, error) {
	if v.variances == nil {
		return nil, nil
	}
	b, ok := v.variances.(*buffer.Buffer[float64])
	if !ok {
		return nil, &errs.TypeError{Op: "Float64Variances", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Float32Data returns the raw backing slice of a dtype.Float32
// Variable's values, the single-precision sibling of Float64Data
// (spec.md's step-1 allow-list example names `(f32,f32)` and
// `(f64,f32)` as legal transform operand tuples alongside `(f64,f64)`).
func (v *Variable) Float32Data() ([]float32, error) {
	b, ok := v.values.(*buffer.Buffer[float32])
	if !ok {
		return nil, &errs.TypeError{Op: "Float32Data", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Float32Variances returns the raw backing slice of a dtype.Float32
// Variable's variances, or nil if v carries none.
func (v *Variable) Float32Variances() ([]float32, error) {
	if v.variances == nil {
		return nil, nil
	}
	b, ok := v.variances.(*buffer.Buffer[float32])
	if !ok {
		return nil, &errs.TypeError{Op: "Float32Variances", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Int64Data returns the raw backing slice of a dtype.Int64 Variable's
// values.
func (v *Variable) Int64Data() ([]int64, error) {
	b, ok := v.values.(*buffer.Buffer[int64])
	if !ok {
		return nil, &errs.TypeError{Op: "Int64Data", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Int32Data returns the raw backing slice of a dtype.Int32 Variable's
// values.
func (v *Variable) Int32Data() ([]int32, error) {
	b, ok := v.values.(*buffer.Buffer[int32])
	if !ok {
		return nil, &errs.TypeError{Op: "Int32Data", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// FloatAccessor abstracts element access over a Float64 or Float32
// buffer as float64, so transform's element loops can walk an
// (f64,f64)/(f32,f32)/(f64,f32) operand pair (spec.md's step-1
// allow-list example) without a dtype switch per element.
type FloatAccessor struct {
	f64 []float64
	f32 []float32
}

// Get returns the element at i, widening from float32 if needed.
func (a FloatAccessor) Get(i int) float64 {
	if a.f64 != nil {
		return a.f64[i]
	}
	return float64(a.f32[i])
}

// Set writes the element at i, narrowing to float32 if needed.
func (a FloatAccessor) Set(i int, x float64) {
	if a.f64 != nil {
		a.f64[i] = x
		return
	}
	a.f32[i] = float32(x)
}

// FloatValues returns a FloatAccessor over v's values. v must be
// dtype.Float64 or dtype.Float32.
func (v *Variable) FloatValues() (FloatAccessor, error) {
	switch v.dtype {
	case dtype.Float64:
		d, err := v.Float64Data()
		if err != nil {
			return FloatAccessor{}, err
		}
		return FloatAccessor{f64: d}, nil
	case dtype.Float32:
		d, err := v.Float32Data()
		if err != nil {
			return FloatAccessor{}, err
		}
		return FloatAccessor{f32: d}, nil
	default:
		return FloatAccessor{}, &errs.TypeError{Op: "FloatValues", Dtype: v.dtype.String()}
	}
}

// FloatVariances returns a FloatAccessor over v's variances. ok is
// false if v carries none. v must be dtype.Float64 or dtype.Float32.
func (v *Variable) FloatVariances() (acc FloatAccessor, ok bool, err error) {
	if v.variances == nil {
		return FloatAccessor{}, false, nil
	}
	switch v.dtype {
	case dtype.Float64:
		d, err := v.Float64Variances()
		if err != nil {
			return FloatAccessor{}, false, err
		}
		return FloatAccessor{f64: d}, true, nil
	case dtype.Float32:
		d, err := v.Float32Variances()
		if err != nil {
			return FloatAccessor{}, false, err
		}
		return FloatAccessor{f32: d}, true, nil
	default:
		return FloatAccessor{}, false, &errs.TypeError{Op: "FloatVariances", Dtype: v.dtype.String()}
	}
}

// BoolData returns the raw backing slice of a dtype.Bool Variable.
func (v *Variable) BoolData() ([]bool, error) {
	b, ok := v.values.(*buffer.Buffer[bool])
	if !ok {
		return nil, &errs.TypeError{Op: "BoolData", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// StringData returns the raw backing slice of a dtype.String
// Variable.
func (v *Variable) StringData() ([]string, error) {
	b, ok := v.values.(*buffer.Buffer[string])
	if !ok {
		return nil, &errs.TypeError{Op: "StringData", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// Vector3Data returns the raw backing slice of a dtype.Vector3
// Variable.
func (v *Variable) Vector3Data() ([]spatial3.Vector3, error) {
	b, ok := v.values.(*buffer.Buffer[spatial3.Vector3])
	if !ok {
		return nil, &errs.TypeError{Op: "Vector3Data", Dtype: v.dtype.String()}
	}
	return b.Data(), nil
}

// EnsureOwnedForWrite returns a Variable whose values (and, if
// present, variances) buffers are safe to mutate in place without
// affecting any other view: each buffer is replaced with the result
// of its own EnsureUnique (copy-on-write, spec.md §5). v's strides,
// offset and dims are unchanged; only the buffer identity may change.
func (v *Variable) EnsureOwnedForWrite() *Variable {
	out := *v
	out.values = v.values.EnsureUnique()
	if v.variances != nil {
		out.variances = v.variances.EnsureUnique()
	}
	return &out
}
