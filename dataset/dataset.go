package dataset

import (
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/variable"
)

// Dataset is an insertion-ordered string -> DataArray map whose items
// share a common Coords and Masks pool (spec.md §3): `Dataset = ordered
// map string → DataArray sharing a common coords/masks pool; each item
// exposes its own view, aligned coords propagate automatically`. Attrs
// are item-only (SPEC_FULL.md §13, Open Question 2: the source's
// during-conversion duplication of attrs onto both item and dataset is
// not replicated); dataset-level metadata that is not per-item lives
// in Meta instead.
type Dataset struct {
	order []string
	data  map[string]*variable.Variable
	attrs map[string]NamedVars

	Coords Coords
	Masks  NamedVars
	Meta   NamedVars
}

// NewDataset returns an empty, ready-to-use Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		data:   map[string]*variable.Variable{},
		attrs:  map[string]NamedVars{},
		Coords: NewCoords(),
		Masks:  NewNamedVars(),
		Meta:   NewNamedVars(),
	}
}

// Set inserts or replaces the item named name, with its own attrs
// (may be the zero NamedVars). Setting an already-present name keeps
// its original position in Keys().
func (ds *Dataset) Set(name string, data *variable.Variable, attrs NamedVars) {
	if _, ok := ds.data[name]; !ok {
		ds.order = append(ds.order, name)
	}
	ds.data[name] = data
	ds.attrs[name] = attrs
}

// Delete removes the item named name, if present.
func (ds *Dataset) Delete(name string) {
	if _, ok := ds.data[name]; !ok {
		return
	}
	delete(ds.data, name)
	delete(ds.attrs, name)
	for i, k := range ds.order {
		if k == name {
			ds.order = append(ds.order[:i], ds.order[i+1:]...)
			break
		}
	}
}

// Keys returns the item names in insertion order.
func (ds *Dataset) Keys() []string { return append([]string(nil), ds.order...) }

// Len returns the number of items.
func (ds *Dataset) Len() int { return len(ds.order) }

// Get returns the item named name as a DataArray view sharing the
// dataset's Coords and Masks pool (spec.md §6's `__getitem__` by
// name), or a *errs.NotFoundError.
func (ds *Dataset) Get(name string) (*DataArray, error) {
	v, ok := ds.data[name]
	if !ok {
		return nil, &errs.NotFoundError{Op: "Get", Kind: "item", Name: name}
	}
	return &DataArray{
		Data:   v,
		Name:   name,
		Coords: ds.Coords,
		Masks:  ds.Masks,
		Attrs:  ds.attrs[name],
	}, nil
}

// DropCoord returns a copy of ds with the shared coord named d
// removed from every item's view.
func (ds *Dataset) DropCoord(d dim.Dim) *Dataset {
	out := ds.shallowClone()
	out.Coords.Delete(d)
	return out
}

// ExtractCoord returns the shared coord named d together with a copy
// of ds with that coord removed.
func (ds *Dataset) ExtractCoord(d dim.Dim) (*variable.Variable, *Dataset, error) {
	v, ok := ds.Coords.Get(d)
	if !ok {
		return nil, nil, &errs.NotFoundError{Op: "ExtractCoord", Kind: "coord", Name: d.String()}
	}
	return v, ds.DropCoord(d), nil
}

// DropMask returns a copy of ds with the shared mask named name
// removed from every item's view.
func (ds *Dataset) DropMask(name string) *Dataset {
	out := ds.shallowClone()
	out.Masks.Delete(name)
	return out
}

func (ds *Dataset) shallowClone() *Dataset {
	out := &Dataset{
		order:  append([]string(nil), ds.order...),
		data:   make(map[string]*variable.Variable, len(ds.data)),
		attrs:  make(map[string]NamedVars, len(ds.attrs)),
		Coords: ds.Coords.Clone(),
		Masks:  ds.Masks.Clone(),
		Meta:   ds.Meta.Clone(),
	}
	for k, v := range ds.data {
		out.data[k] = v
	}
	for k, v := range ds.attrs {
		out.attrs[k] = v
	}
	return out
}

// Slice returns a copy of ds sliced to the contiguous sub-range
// [begin,end) of dim d: the shared Coords/Masks pool entries that
// depend on d are sliced, and every item whose own data depends on d
// is sliced along with its attrs; items that do not depend on d pass
// through unchanged (spec.md §3, §4.3).
func (ds *Dataset) Slice(d dim.Dim, begin, end int) (*Dataset, error) {
	out := NewDataset()
	for _, k := range ds.Coords.Keys() {
		v, _ := ds.Coords.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Coords.Set(k, sv)
	}
	for _, k := range ds.Masks.Keys() {
		v, _ := ds.Masks.Get(k)
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		out.Masks.Set(k, sv)
	}
	out.Meta = ds.Meta.Clone()
	for _, name := range ds.order {
		v := ds.data[name]
		sv, err := sliceIfDependentErr(v, d, begin, end)
		if err != nil {
			return nil, err
		}
		attrs := ds.attrs[name].Clone()
		for _, k := range attrs.Keys() {
			av, _ := attrs.Get(k)
			sav, err := sliceIfDependentErr(av, d, begin, end)
			if err != nil {
				return nil, err
			}
			attrs.Set(k, sav)
		}
		out.Set(name, sv, attrs)
	}
	return out, nil
}

// Merge combines ds and other into a new Dataset: shared coords that
// appear in both must agree by value (*errs.CoordMismatchError
// otherwise); masks are unioned the same way; items are unioned, and
// a name present in both is an error unless the two items' data are
// Equal (spec.md §6's `merge`).
func Merge(a, b *Dataset) (*Dataset, error) {
	out := NewDataset()
	for _, k := range a.Coords.Keys() {
		v, _ := a.Coords.Get(k)
		out.Coords.Set(k, v)
	}
	for _, k := range b.Coords.Keys() {
		bv, _ := b.Coords.Get(k)
		if av, ok := out.Coords.Get(k); ok {
			if !av.Equal(bv) {
				return nil, &errs.CoordMismatchError{Op: "merge", Name: k.String()}
			}
			continue
		}
		out.Coords.Set(k, bv)
	}
	for _, k := range a.Masks.Keys() {
		v, _ := a.Masks.Get(k)
		out.Masks.Set(k, v)
	}
	for _, k := range b.Masks.Keys() {
		bv, _ := b.Masks.Get(k)
		if av, ok := out.Masks.Get(k); ok {
			if !av.Equal(bv) {
				return nil, &errs.CoordMismatchError{Op: "merge", Name: k}
			}
			continue
		}
		out.Masks.Set(k, bv)
	}
	for _, name := range a.order {
		out.Set(name, a.data[name], a.attrs[name])
	}
	for _, name := range b.order {
		if existing, ok := out.data[name]; ok {
			if !existing.Equal(b.data[name]) {
				return nil, &errs.CoordMismatchError{Op: "merge", Name: name}
			}
			continue
		}
		out.Set(name, b.data[name], b.attrs[name])
	}
	return out, nil
}
