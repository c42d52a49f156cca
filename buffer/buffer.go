// Package buffer implements Buffer[T], ref-counted contiguous element
// storage with copy-on-write mutation, grounded on the flat-slice
// storage model of gonum's blas64.Vector / blas64.General (a fixed
// []float64 plus a stride), generalized to any element type and to
// reference counting since nscipp's Variable shares storage across
// views the way mat.Dense shares a backing slice across SliceVec/
// Slice results.
package buffer

import (
	"sync/atomic"
	"unsafe"
)

// Untyped is the type-erased view of a Buffer[T] that the dtype-
// dispatch switch in package variable holds without knowing T,
// mirroring spec.md §9's "dtype tag plus a type-erased buffer handle".
type Untyped interface {
	Len() int
	// Identity returns a value that is equal for two Untyped buffers
	// if and only if they share the same backing array, used for the
	// self-overlap check of spec.md §9 ("a simple buffer-identity +
	// range-overlap check is sufficient").
	Identity() uintptr
	// Clone returns an independent deep copy with its own identity
	// and a fresh refcount of 1.
	Clone() Untyped
	// Share returns a new handle aliasing the same backing storage,
	// incrementing the reference count.
	Share() Untyped
	// EnsureUnique returns a handle safe to mutate in place without
	// affecting any other sharer, copying first if necessary.
	EnsureUnique() Untyped
}

// Buffer is fixed-size, ref-counted, contiguous storage for a
// concrete element type T. Its zero value is not usable; construct
// with New, FromSlice or Share.
type Buffer[T any] struct {
	data []T
	rc   *int64
}

// New allocates a fresh, zeroed Buffer of n elements.
func New[T any](n int) *Buffer[T] {
	one := int64(1)
	return &Buffer[T]{data: make([]T, n), rc: &one}
}

// FromSlice wraps data directly (no copy) as a new, uniquely-owned
// Buffer.
func FromSlice[T any](data []T) *Buffer[T] {
	one := int64(1)
	return &Buffer[T]{data: data, rc: &one}
}

// Len returns the element count.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Data returns the backing slice. Callers that intend to mutate must
// first call EnsureUnique; Data itself performs no copy-on-write
// check; Len==0 also returns a nil-safe empty slice.
func (b *Buffer[T]) Data() []T { return b.data }

// Identity returns a stable per-backing-array identity, 0 for an
// empty buffer (which can never alias another buffer's writes).
func (b *Buffer[T]) Identity() uintptr {
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

// TypedShare returns a new *Buffer[T] that shares storage with b,
// incrementing the reference count. Used whenever a view or a shallow
// Variable handle is created over existing storage.
func (b *Buffer[T]) TypedShare() *Buffer[T] {
	atomic.AddInt64(b.rc, 1)
	return &Buffer[T]{data: b.data, rc: b.rc}
}

// Share implements Untyped.Share.
func (b *Buffer[T]) Share() Untyped { return b.TypedShare() }

// refs reports the current reference count.
func (b *Buffer[T]) refs() int64 { return atomic.LoadInt64(b.rc) }

// TypedEnsureUnique returns a *Buffer[T] safe to mutate through b's
// view without affecting any other sharer: if b's storage is
// exclusively owned it returns b unchanged; otherwise it copies the
// backing slice and returns a new, uniquely-owned Buffer,
// decrementing the original's count. This is copy-on-write (spec.md
// §5).
func (b *Buffer[T]) TypedEnsureUnique() *Buffer[T] {
	if b.refs() <= 1 {
		return b
	}
	cp := make([]T, len(b.data))
	copy(cp, b.data)
	atomic.AddInt64(b.rc, -1)
	one := int64(1)
	return &Buffer[T]{data: cp, rc: &one}
}

// EnsureUnique implements Untyped.EnsureUnique.
func (b *Buffer[T]) EnsureUnique() Untyped { return b.TypedEnsureUnique() }

// Clone returns an independent deep copy of b regardless of its
// current reference count, used by Variable.Copy (spec.md §4.3).
func (b *Buffer[T]) Clone() Untyped {
	cp := make([]T, len(b.data))
	copy(cp, b.data)
	one := int64(1)
	return &Buffer[T]{data: cp, rc: &one}
}

// TypedClone is Clone with the concrete *Buffer[T] return type, for
// callers that are not operating through the Untyped interface.
func (b *Buffer[T]) TypedClone() *Buffer[T] {
	return b.Clone().(*Buffer[T])
}

// Overlaps reports whether a and b share backing storage with
// overlapping element ranges [aBegin,aEnd) and [bBegin,bEnd). Callers
// pass element offsets within each buffer's own Data(); Overlaps only
// compares identity and offsets, not the offsets' absolute addresses,
// so it is only meaningful when both ranges were computed relative to
// the same Identity().
func Overlaps(a, b Untyped, aBegin, aEnd, bBegin, bEnd int) bool {
	if a.Identity() == 0 || a.Identity() != b.Identity() {
		return false
	}
	return aBegin < bEnd && bBegin < aEnd
}
