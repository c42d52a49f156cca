package variable

import (
	"math"
	"reflect"

	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/spatial3"
)

// Equal reports whether v and other have identical dims, unit, dtype,
// variance-presence and element values (and variances, if present),
// the exact-equality primitive spec.md §8's "identity of copy" and
// "slice commutes with op" properties are phrased in terms of
// (SPEC_FULL.md §12; mirrors floats.Equal's exact-compare sibling).
// Binned variables compare index pairs and recurse into BinBuffer.
func (v *Variable) Equal(other *Variable) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.dtype != other.dtype || !v.dims.Equal(other.dims) || !v.unit.Equal(other.unit) {
		return false
	}
	if v.HasVariances() != other.HasVariances() {
		return false
	}
	if v.IsBinned() != other.IsBinned() {
		return false
	}
	if !valuesEqual(v, other, false, false, 0, 0) {
		return false
	}
	if v.IsBinned() {
		if v.binDim != other.binDim {
			return false
		}
		return v.binBuffer.Equal(other.binBuffer)
	}
	if v.HasVariances() {
		return valuesEqual(v, other, true, false, 0, 0)
	}
	return true
}

// EqualApprox reports whether v and other are Equal up to rtol/atol
// applied to float64/float32 values (dims/unit/dtype/variance
// presence must still match exactly); every other dtype falls back to
// exact comparison. This is the tolerance-bearing sibling of Equal
// mirroring floats.EqualApprox, used by spec.md §8's "rebin mass
// conservation" style properties where float rounding is expected.
func (v *Variable) EqualApprox(other *Variable, rtol, atol float64) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.dtype != other.dtype || !v.dims.Equal(other.dims) || !v.unit.Equal(other.unit) {
		return false
	}
	if v.HasVariances() != other.HasVariances() {
		return false
	}
	if v.IsBinned() != other.IsBinned() {
		return false
	}
	if !valuesEqual(v, other, false, true, rtol, atol) {
		return false
	}
	if v.IsBinned() {
		if v.binDim != other.binDim {
			return false
		}
		return v.binBuffer.EqualApprox(other.binBuffer, rtol, atol)
	}
	if v.HasVariances() {
		return valuesEqual(v, other, true, true, rtol, atol)
	}
	return true
}

func closeFloat(a, b, rtol, atol float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= atol+rtol*math.Abs(b)
}

// valuesEqual materializes (dense, storage-order) copies of v's and
// other's values (or variances, if variances is true) and compares
// them, optionally within rtol/atol for float dtypes.
func valuesEqual(v, other *Variable, variances, approx bool, rtol, atol float64) bool {
	var bufA, bufB buffer.Untyped
	if variances {
		bufA, bufB = v.variances, other.variances
	} else {
		bufA, bufB = v.values, other.values
	}
	if bufA == nil || bufB == nil {
		return bufA == nil && bufB == nil
	}
	if v.dims.Volume() != other.dims.Volume() {
		return false
	}
	forIdx := !variances && v.dtype == dtype.IndexPair
	da := materializeCopy(v, bufA, forIdx)
	db := materializeCopy(other, bufB, forIdx)
	dt := v.dtype
	if variances {
		dt = dtype.Float64
		if v.dtype == dtype.Float32 {
			dt = dtype.Float32
		}
	}
	if forIdx {
		dt = dtype.IndexPair
	}
	switch dt {
	case dtype.Float64:
		sa := da.(*buffer.Buffer[float64]).Data()
		sb := db.(*buffer.Buffer[float64]).Data()
		if !approx {
			return reflect.DeepEqual(sa, sb)
		}
		for i := range sa {
			if !closeFloat(sa[i], sb[i], rtol, atol) {
				return false
			}
		}
		return true
	case dtype.Float32:
		sa := da.(*buffer.Buffer[float32]).Data()
		sb := db.(*buffer.Buffer[float32]).Data()
		if !approx {
			return reflect.DeepEqual(sa, sb)
		}
		for i := range sa {
			if !closeFloat(float64(sa[i]), float64(sb[i]), rtol, atol) {
				return false
			}
		}
		return true
	case dtype.Int64, dtype.TimePoint:
		return reflect.DeepEqual(da.(*buffer.Buffer[int64]).Data(), db.(*buffer.Buffer[int64]).Data())
	case dtype.Int32:
		return reflect.DeepEqual(da.(*buffer.Buffer[int32]).Data(), db.(*buffer.Buffer[int32]).Data())
	case dtype.Bool:
		return reflect.DeepEqual(da.(*buffer.Buffer[bool]).Data(), db.(*buffer.Buffer[bool]).Data())
	case dtype.String:
		return reflect.DeepEqual(da.(*buffer.Buffer[string]).Data(), db.(*buffer.Buffer[string]).Data())
	case dtype.Vector3:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.Vector3]).Data(), db.(*buffer.Buffer[spatial3.Vector3]).Data())
	case dtype.Matrix3:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.Matrix3]).Data(), db.(*buffer.Buffer[spatial3.Matrix3]).Data())
	case dtype.Affine3:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.Affine3]).Data(), db.(*buffer.Buffer[spatial3.Affine3]).Data())
	case dtype.Rotation:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.Rotation]).Data(), db.(*buffer.Buffer[spatial3.Rotation]).Data())
	case dtype.Translation:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.Translation]).Data(), db.(*buffer.Buffer[spatial3.Translation]).Data())
	case dtype.IndexPair:
		return reflect.DeepEqual(da.(*buffer.Buffer[spatial3.IndexPair]).Data(), db.(*buffer.Buffer[spatial3.IndexPair]).Data())
	default:
		return false
	}
}
