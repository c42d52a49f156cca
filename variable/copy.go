package variable

import (
	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/spatial3"
)

// incrementIndex advances idx (row-major, last dim fastest) in place
// over shape; it is the same odometer-style index walk used by
// gonum's mat formatting code when it iterates every element of a
// Dense in display order.
func incrementIndex(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}

func copyStrided[T any](v *Variable, buf buffer.Untyped) *buffer.Buffer[T] {
	src := buf.(*buffer.Buffer[T]).Data()
	shape := v.dims.Shape()
	n := v.dims.Volume()
	out := make([]T, n)
	if n == 0 {
		return buffer.FromSlice(out)
	}
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		flat := v.offset + v.strd.flatIndex(idx)
		out[i] = src[flat]
		incrementIndex(idx, shape)
	}
	return buffer.FromSlice(out)
}

// materializeCopy returns a contiguous copy of buf as seen through
// v's current dims/strides/offset. forIndices selects the IndexPair
// element type for a binned Variable's indices buffer.
func materializeCopy(v *Variable, buf buffer.Untyped, forIndices bool) buffer.Untyped {
	if forIndices {
		return copyStrided[spatial3.IndexPair](v, buf)
	}
	switch v.dtype {
	case dtype.Float64:
		return copyStrided[float64](v, buf)
	case dtype.Float32:
		return copyStrided[float32](v, buf)
	case dtype.Int64:
		return copyStrided[int64](v, buf)
	case dtype.Int32:
		return copyStrided[int32](v, buf)
	case dtype.Bool:
		return copyStrided[bool](v, buf)
	case dtype.String:
		return copyStrided[string](v, buf)
	case dtype.TimePoint:
		return copyStrided[int64](v, buf)
	case dtype.Vector3:
		return copyStrided[spatial3.Vector3](v, buf)
	case dtype.Matrix3:
		return copyStrided[spatial3.Matrix3](v, buf)
	case dtype.Affine3:
		return copyStrided[spatial3.Affine3](v, buf)
	case dtype.Rotation:
		return copyStrided[spatial3.Rotation](v, buf)
	case dtype.Translation:
		return copyStrided[spatial3.Translation](v, buf)
	default:
		// IndexPair-typed buffers never reach here with forIndices
		// false; anything else unhandled means a dtype was added to
		// package dtype without a matching case here.
		panic("variable: materializeCopy: unhandled dtype " + v.dtype.String())
	}
}
