// Package dimensions provides Dimensions, the ordered (Dim → extent)
// map attached to every Variable. The ordering is the memory-layout
// order (outermost first), mirroring the way gonum's mat.Matrix
// exposes Dims() as an ordered (rows, cols) pair rather than a set.
package dimensions

import (
	"fmt"
	"strings"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/errs"
)

// MaxRank is the maximum number of dimensions a Dimensions may hold.
// spec.md §1 Non-goals caps rank at 6 and requires a clear error
// beyond that rather than silently supporting arbitrary rank.
const MaxRank = 6

// Sparse is a reserved extent sentinel. Pushing it always fails with
// errs.NotImplementedError: the historical C++ source's sparse
// dimension concept is superseded by explicit binning (spec.md §9,
// Open Questions).
const Sparse = -1

type entry struct {
	d   dim.Dim
	ext int
}

// Dimensions is an ordered sequence of (Dim, extent) entries. The zero
// value is the empty (0-D / scalar) Dimensions and is ready to use.
type Dimensions struct {
	entries []entry
}

// New builds a Dimensions from labels and extents given outermost
// first. It panics on malformed input (mismatched lengths, duplicate
// dims, negative extents) since this is a programmer error, the way
// mat.NewDense panics on a malformed backing slice.
func New(dims []dim.Dim, extents []int) Dimensions {
	if len(dims) != len(extents) {
		panic("dimensions: len(dims) != len(extents)")
	}
	var d Dimensions
	for i := range dims {
		if err := d.Push(dims[i], extents[i]); err != nil {
			panic(err)
		}
	}
	return d
}

// Push appends (label, extent) as the new innermost dimension.
func (d *Dimensions) Push(label dim.Dim, extent int) error {
	if extent == Sparse {
		return &errs.NotImplementedError{Op: "Dimensions.Push", Reason: "Sparse dimension extent is not supported; use explicit binning"}
	}
	if extent < 0 {
		return &errs.DimensionError{Op: "Dimensions.Push", Reason: fmt.Sprintf("negative extent %d for dim %q", extent, label)}
	}
	if !label.IsValid() {
		return &errs.DimensionError{Op: "Dimensions.Push", Reason: "invalid (empty) dim label"}
	}
	if d.Contains(label) {
		return &errs.DimensionError{Op: "Dimensions.Push", Reason: fmt.Sprintf("duplicate dim %q", label)}
	}
	if len(d.entries) >= MaxRank {
		return &errs.DimensionError{Op: "Dimensions.Push", Reason: fmt.Sprintf("rank exceeds MaxRank=%d", MaxRank)}
	}
	d.entries = append(d.entries, entry{d: label, ext: extent})
	return nil
}

// Erase removes label, which must be present.
func (d *Dimensions) Erase(label dim.Dim) error {
	i := d.IndexOf(label)
	if i < 0 {
		return &errs.DimensionError{Op: "Dimensions.Erase", Reason: fmt.Sprintf("dim %q not present", label)}
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return nil
}

// Rename replaces from with to in place, preserving position. It
// fails if to is already present (spec.md §4.2).
func (d *Dimensions) Rename(from, to dim.Dim) error {
	i := d.IndexOf(from)
	if i < 0 {
		return &errs.DimensionError{Op: "Dimensions.Rename", Reason: fmt.Sprintf("dim %q not present", from)}
	}
	if from != to && d.Contains(to) {
		return &errs.DimensionError{Op: "Dimensions.Rename", Reason: fmt.Sprintf("dim %q already present", to)}
	}
	d.entries[i].d = to
	return nil
}

// Permute returns a new Dimensions with entries reordered to match
// order, which must be a permutation of d's dims.
func (d Dimensions) Permute(order []dim.Dim) (Dimensions, error) {
	if len(order) != len(d.entries) {
		return Dimensions{}, &errs.DimensionError{Op: "Dimensions.Permute", Reason: "order length does not match rank"}
	}
	out := Dimensions{entries: make([]entry, len(order))}
	seen := make(map[dim.Dim]bool, len(order))
	for i, lbl := range order {
		if seen[lbl] {
			return Dimensions{}, &errs.DimensionError{Op: "Dimensions.Permute", Reason: fmt.Sprintf("dim %q repeated in order", lbl)}
		}
		seen[lbl] = true
		j := d.IndexOf(lbl)
		if j < 0 {
			return Dimensions{}, &errs.DimensionError{Op: "Dimensions.Permute", Reason: fmt.Sprintf("dim %q not present", lbl)}
		}
		out.entries[i] = d.entries[j]
	}
	return out, nil
}

// Rank returns the number of dimensions.
func (d Dimensions) Rank() int { return len(d.entries) }

// Contains reports whether label is one of d's dims.
func (d Dimensions) Contains(label dim.Dim) bool { return d.IndexOf(label) >= 0 }

// IndexOf returns the storage-order position of label, or -1.
func (d Dimensions) IndexOf(label dim.Dim) int {
	for i, e := range d.entries {
		if e.d == label {
			return i
		}
	}
	return -1
}

// Extent returns the extent of label. It panics if label is absent;
// callers that are unsure should check Contains first.
func (d Dimensions) Extent(label dim.Dim) int {
	i := d.IndexOf(label)
	if i < 0 {
		panic(fmt.Sprintf("dimensions: dim %q not present", label))
	}
	return d.entries[i].ext
}

// ExtentAt returns the extent at storage position i.
func (d Dimensions) ExtentAt(i int) int { return d.entries[i].ext }

// DimAt returns the dim label at storage position i.
func (d Dimensions) DimAt(i int) dim.Dim { return d.entries[i].d }

// Labels returns the dims in storage order.
func (d Dimensions) Labels() []dim.Dim {
	out := make([]dim.Dim, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.d
	}
	return out
}

// Shape returns the extents in storage order.
func (d Dimensions) Shape() []int {
	out := make([]int, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.ext
	}
	return out
}

// Volume returns the product of all extents; the empty Dimensions has
// volume 1 (a scalar).
func (d Dimensions) Volume() int {
	v := 1
	for _, e := range d.entries {
		v *= e.ext
	}
	return v
}

// Includes reports whether every (dim, extent) pair in other also
// appears in d with an equal extent. This is the broadcast-target
// relation of spec.md §4.2: other.BroadcastableTo(d) is expressed as
// d.Includes(other).
func (d Dimensions) Includes(other Dimensions) bool {
	for _, e := range other.entries {
		i := d.IndexOf(e.d)
		if i < 0 || d.entries[i].ext != e.ext {
			return false
		}
	}
	return true
}

// BroadcastableTo reports whether d can be broadcast to target,
// i.e. target.Includes(d).
func (d Dimensions) BroadcastableTo(target Dimensions) bool { return target.Includes(d) }

// Equal reports whether d and other have identical (dim, extent)
// sequences, order included.
func (d Dimensions) Equal(other Dimensions) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i := range d.entries {
		if d.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}

// Union returns the left-to-right union of a set of Dimensions,
// preserving the order dims first appear in, per spec.md §4.4 step 3.
// It fails if the same dim appears with conflicting extents.
func Union(all ...Dimensions) (Dimensions, error) {
	var out Dimensions
	for _, d := range all {
		for _, e := range d.entries {
			i := out.IndexOf(e.d)
			if i < 0 {
				if err := out.Push(e.d, e.ext); err != nil {
					return Dimensions{}, err
				}
				continue
			}
			if out.entries[i].ext != e.ext {
				return Dimensions{}, &errs.DimensionError{Op: "dimensions.Union", Reason: fmt.Sprintf("dim %q has conflicting extents %d and %d", e.d, out.entries[i].ext, e.ext)}
			}
		}
	}
	return out, nil
}

// String renders e.g. "(x: 2, y: 3)".
func (d Dimensions) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range d.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d", e.d, e.ext)
	}
	sb.WriteByte(')')
	return sb.String()
}
