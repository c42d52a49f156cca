package dataset

import (
	"fmt"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/transform"
	"github.com/nscipp/nscipp/variable"
)

// DataArray composes a Variable with named, possibly-aligned coords,
// named masks and attrs, and a display name (spec.md §3). It is the
// level at which groupby, slicing-by-value, and masked reductions are
// actually called by a user; DataArray methods resolve coords/masks
// and dispatch to the core Variable-level kernels.
type DataArray struct {
	Data   *variable.Variable
	Coords Coords
	Masks  NamedVars
	Attrs  NamedVars
	Name   string
}

// New returns a DataArray wrapping data with no coords, masks or
// attrs set.
func New(name string, data *variable.Variable) *DataArray {
	return &DataArray{Data: data, Name: name, Coords: NewCoords(), Masks: NewNamedVars(), Attrs: NewNamedVars()}
}

// Dims is a convenience forward to Data.Dims().
func (a *DataArray) Dims() dimensions.Dimensions { return a.Data.Dims() }

// Coord returns the coord named d, or a *errs.NotFoundError.
func (a *DataArray) Coord(d dim.Dim) (*variable.Variable, error) {
	v, ok := a.Coords.Get(d)
	if !ok {
		return nil, &errs.NotFoundError{Op: "Coord", Kind: "coord", Name: d.String()}
	}
	return v, nil
}

// Mask returns the mask named name, or a *errs.NotFoundError.
func (a *DataArray) Mask(name string) (*variable.Variable, error) {
	v, ok := a.Masks.Get(name)
	if !ok {
		return nil, &errs.NotFoundError{Op: "Mask", Kind: "mask", Name: name}
	}
	return v, nil
}

// Attr returns the attr named name, or a *errs.NotFoundError.
func (a *DataArray) Attr(name string) (*variable.Variable, error) {
	v, ok := a.Attrs.Get(name)
	if !ok {
		return nil, &errs.NotFoundError{Op: "Attr", Kind: "attr", Name: name}
	}
	return v, nil
}

// shallowClone returns a new *DataArray sharing Data (a view/variable
// handle, not a deep copy) but with independent Coords/Masks/Attrs
// maps, so callers can Set/Delete without mutating the original.
func (a *DataArray) shallowClone() *DataArray {
	return &DataArray{
		Data:   a.Data,
		Coords: a.Coords.Clone(),
		Masks:  a.Masks.Clone(),
		Attrs:  a.Attrs.Clone(),
		Name:   a.Name,
	}
}

// DropCoord returns a copy of a with the coord named d removed
// (spec.md §6 drop/extract).
func (a *DataArray) DropCoord(d dim.Dim) *DataArray {
	out := a.shallowClone()
	out.Coords.Delete(d)
	return out
}

// ExtractCoord returns the coord named d together with a copy of a
// with that coord removed.
func (a *DataArray) ExtractCoord(d dim.Dim) (*variable.Variable, *DataArray, error) {
	v, err := a.Coord(d)
	if err != nil {
		return nil, nil, err
	}
	return v, a.DropCoord(d), nil
}

// DropMask returns a copy of a with the mask named name removed.
func (a *DataArray) DropMask(name string) *DataArray {
	out := a.shallowClone()
	out.Masks.Delete(name)
	return out
}

// ExtractMask returns the mask named name together with a copy of a
// with that mask removed.
func (a *DataArray) ExtractMask(name string) (*variable.Variable, *DataArray, error) {
	v, err := a.Mask(name)
	if err != nil {
		return nil, nil, err
	}
	return v, a.DropMask(name), nil
}

// Slice returns a copy of a sliced to the contiguous sub-range
// [begin,end) of dim d: Data is sliced, and every coord/mask/attr
// whose own dims contain d is sliced identically; entries that do not
// depend on d pass through unchanged (spec.md §4.3, §3).
func (a *DataArray) Slice(d dim.Dim, begin, end int) (*DataArray, error) {
	data, err := a.Data.Slice(d, begin, end)
	if err != nil {
		return nil, err
	}
	out := &DataArray{Data: data, Name: a.Name, Coords: NewCoords(), Masks: NewNamedVars(), Attrs: NewNamedVars()}
	for _, k := range a.Coords.Keys() {
		v, _ := a.Coords.Get(k)
		out.Coords.Set(k, sliceIfDependent(v, d, begin, end))
	}
	for _, k := range a.Masks.Keys() {
		v, _ := a.Masks.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Masks.Set(k, sv)
	}
	for _, k := range a.Attrs.Keys() {
		v, _ := a.Attrs.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Attrs.Set(k, sv)
	}
	return out, nil
}

// sliceIfDependent slices v along d if v's dims contain d and returns
// v unchanged otherwise. Plain Slice is not bin-edge aware; callers
// that need edge-aware slicing use SliceEdgeAware instead.
func sliceIfDependent(v *variable.Variable, d dim.Dim, begin, end int) *variable.Variable {
	out, err := sliceIfDependentErr(v, d, begin, end)
	if err != nil {
		return v
	}
	return out
}

func sliceIfDependentErr(v *variable.Variable, d dim.Dim, begin, end int) (*variable.Variable, error) {
	if !v.Dims().Contains(d) {
		return v, nil
	}
	return v.Slice(d, begin, end)
}

// IsBinEdgeCoord reports whether coord is a bin-edge coord for dim d
// of an array whose own extent along d is ownerExtent (spec.md §3:
// "a coord with extent dims[d]+1 along dim d is a bin-edge coord").
func IsBinEdgeCoord(coord *variable.Variable, d dim.Dim, ownerExtent int) bool {
	return coord.Dims().Contains(d) && coord.Dims().Extent(d) == ownerExtent+1
}

// SliceEdgeAware slices a along d like Slice, but a coord on d that is
// a bin-edge coord (spec.md §3) is sliced to [begin, end+1) so the
// result's edges still bracket the selected bins, matching scenario 3
// of spec.md §8.
func (a *DataArray) SliceEdgeAware(d dim.Dim, begin, end int) (*DataArray, error) {
	ownerExtent := a.Dims().Extent(d)
	data, err := a.Data.Slice(d, begin, end)
	if err != nil {
		return nil, err
	}
	out := &DataArray{Data: data, Name: a.Name, Coords: NewCoords(), Masks: NewNamedVars(), Attrs: NewNamedVars()}
	for _, k := range a.Coords.Keys() {
		v, _ := a.Coords.Get(k)
		if !v.Dims().Contains(d) {
			out.Coords.Set(k, v)
			continue
		}
		edgeEnd := end
		if IsBinEdgeCoord(v, d, ownerExtent) {
			edgeEnd = end + 1
		}
		sv, err := v.Slice(d, begin, edgeEnd)
		if err != nil {
			return nil, err
		}
		out.Coords.Set(k, sv)
	}
	for _, k := range a.Masks.Keys() {
		v, _ := a.Masks.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Masks.Set(k, sv)
	}
	for _, k := range a.Attrs.Keys() {
		v, _ := a.Attrs.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Attrs.Set(k, sv)
	}
	return out, nil
}

// SliceAt returns a copy of a with dim d collapsed to single index i:
// Data.SliceAt(d,i) drops d; coords/masks/attrs aligned with d are
// also collapsed and remain attached as unaligned entries (spec.md
// §9, "Coords stickiness" — equality later treats them as
// value-only).
func (a *DataArray) SliceAt(d dim.Dim, i int) (*DataArray, error) {
	data, err := a.Data.SliceAt(d, i)
	if err != nil {
		return nil, err
	}
	out := &DataArray{Data: data, Name: a.Name, Coords: NewCoords(), Masks: NewNamedVars(), Attrs: a.Attrs.Clone()}
	for _, k := range a.Coords.Keys() {
		v, _ := a.Coords.Get(k)
		if v.Dims().Contains(d) {
			sv, err := v.SliceAt(d, i)
			if err != nil {
				return nil, err
			}
			out.Coords.Set(k, sv)
			continue
		}
		out.Coords.Set(k, v)
	}
	for _, k := range a.Masks.Keys() {
		v, _ := a.Masks.Get(k)
		if v.Dims().Contains(d) {
			sv, err := v.SliceAt(d, i)
			if err != nil {
				return nil, err
			}
			out.Masks.Set(k, sv)
			continue
		}
		out.Masks.Set(k, v)
	}
	for _, k := range a.Attrs.Keys() {
		v, _ := a.Attrs.Get(k)
		if v.Dims().Contains(d) {
			sv, err := v.SliceAt(d, i)
			if err != nil {
				return nil, err
			}
			out.Attrs.Set(k, sv)
			continue
		}
		out.Attrs.Set(k, v)
	}
	return out, nil
}

// mergeCoords returns the union of a and b's coords (keys from a
// first, then any from b not already in a); a key present in both
// must agree by value or the merge fails with *errs.CoordMismatchError
// (spec.md §4.7's concat coord-matching rule, reused here for binary
// arithmetic's "aligned coord disagreement" case per spec.md §6's
// error taxonomy entry for CoordMismatchError).
func mergeCoords(a, b Coords) (Coords, error) {
	out := a.Clone()
	for _, k := range b.Keys() {
		bv, _ := b.Get(k)
		if av, ok := out.Get(k); ok {
			if !av.Equal(bv) {
				return Coords{}, &errs.CoordMismatchError{Op: "merge", Name: k.String()}
			}
			continue
		}
		out.Set(k, bv)
	}
	return out, nil
}

func mergeMasks(a, b NamedVars) NamedVars {
	out := a.Clone()
	for _, k := range b.Keys() {
		if _, ok := out.Get(k); ok {
			continue
		}
		bv, _ := b.Get(k)
		out.Set(k, bv)
	}
	return out
}

// binaryOp applies fn (one of transform.Add/.../Div) to a.Data and
// b.Data, merging coords (requiring agreement on shared aligned
// coords) and unioning masks/attrs.
func binaryOp(op string, a, b *DataArray, fn func(x, y *variable.Variable) (*variable.Variable, error)) (*DataArray, error) {
	coords, err := mergeCoords(a.Coords, b.Coords)
	if err != nil {
		return nil, err
	}
	data, err := fn(a.Data, b.Data)
	if err != nil {
		return nil, err
	}
	return &DataArray{
		Data:   data,
		Coords: coords,
		Masks:  mergeMasks(a.Masks, b.Masks),
		Attrs:  mergeMasks(a.Attrs, b.Attrs),
	}, nil
}

// Add returns a+b (spec.md §6).
func Add(a, b *DataArray) (*DataArray, error) { return binaryOp("add", a, b, transform.Add) }

// Sub returns a-b.
func Sub(a, b *DataArray) (*DataArray, error) { return binaryOp("subtract", a, b, transform.Sub) }

// Mul returns a*b.
func Mul(a, b *DataArray) (*DataArray, error) { return binaryOp("multiply", a, b, transform.Mul) }

// Div returns a/b.
func Div(a, b *DataArray) (*DataArray, error) { return binaryOp("divide", a, b, transform.Div) }

// Equal reports whether a and b have the same Data, and the same set
// of coords/masks/attrs comparing equal by value (order- and
// alignment-independent, per spec.md §9: "equality comparison treats
// unaligned coords as value-only").
func (a *DataArray) Equal(b *DataArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.Data.Equal(b.Data) {
		return false
	}
	if a.Coords.Len() != b.Coords.Len() || a.Masks.Len() != b.Masks.Len() || a.Attrs.Len() != b.Attrs.Len() {
		return false
	}
	for _, k := range a.Coords.Keys() {
		av, _ := a.Coords.Get(k)
		bv, ok := b.Coords.Get(k)
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	for _, k := range a.Masks.Keys() {
		av, _ := a.Masks.Get(k)
		bv, ok := b.Masks.Get(k)
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	for _, k := range a.Attrs.Keys() {
		av, _ := a.Attrs.Get(k)
		bv, ok := b.Attrs.Get(k)
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// String renders a short human-readable summary (SPEC_FULL.md §12).
func (a *DataArray) String() string {
	return fmt.Sprintf("DataArray(name=%q, data=%s, coords=%v, masks=%v)", a.Name, a.Data, a.Coords.Keys(), a.Masks.Keys())
}
