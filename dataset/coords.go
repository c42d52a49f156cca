// Package dataset implements DataArray and Dataset, the thin
// composition layer over variable.Variable described by spec.md §3
// (Coords/Masks/Attrs) and dispatched to by groupby/rebin/reshape
// (spec.md §2's component table, "DataArray / Dataset"). It is
// grounded on stat.go's named-column idiom (stat.go operates on named
// []float64 columns the way DataArray operates on named coords) and
// on mat.Matrix's thin-interface-over-Dense layering: Coords, Masks
// and Attrs are ordered maps the same shape as Dimensions itself,
// generalized from (Dim, extent) pairs to (key, *Variable) pairs.
package dataset

import (
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/variable"
)

// Coords is an insertion-ordered Dim -> *variable.Variable map, the
// named-coordinate layer of spec.md §3. A coord is "aligned" with a
// dim d if its own Dims() contains d; unaligned coords (e.g. those
// left behind by a single-index slice) still travel with the owner
// until dropped explicitly (spec.md §9, "Coords stickiness").
type Coords struct {
	order []dim.Dim
	m     map[dim.Dim]*variable.Variable
}

// NewCoords returns an empty, ready-to-use Coords.
func NewCoords() Coords {
	return Coords{m: map[dim.Dim]*variable.Variable{}}
}

func (c *Coords) ensure() {
	if c.m == nil {
		c.m = map[dim.Dim]*variable.Variable{}
	}
}

// Set inserts or replaces the coord named d. Setting an already
// present d keeps its original position in Keys().
func (c *Coords) Set(d dim.Dim, v *variable.Variable) {
	c.ensure()
	if _, ok := c.m[d]; !ok {
		c.order = append(c.order, d)
	}
	c.m[d] = v
}

// Get returns the coord named d, and whether it is present.
func (c Coords) Get(d dim.Dim) (*variable.Variable, bool) {
	v, ok := c.m[d]
	return v, ok
}

// Delete removes the coord named d, if present.
func (c *Coords) Delete(d dim.Dim) {
	if _, ok := c.m[d]; !ok {
		return
	}
	delete(c.m, d)
	for i, k := range c.order {
		if k == d {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Keys returns the coord names in insertion order.
func (c Coords) Keys() []dim.Dim {
	return append([]dim.Dim(nil), c.order...)
}

// Len returns the number of coords.
func (c Coords) Len() int { return len(c.order) }

// Aligned reports whether the coord named d is aligned, i.e. its own
// Dims() contains d (spec.md §3).
func (c Coords) Aligned(d dim.Dim) bool {
	v, ok := c.m[d]
	return ok && v.Dims().Contains(d)
}

// Clone returns a shallow copy: a new ordered map over the same
// *variable.Variable values, safe for a caller to Set/Delete on
// independently of the original.
func (c Coords) Clone() Coords {
	out := Coords{order: append([]dim.Dim(nil), c.order...), m: make(map[dim.Dim]*variable.Variable, len(c.m))}
	for k, v := range c.m {
		out.m[k] = v
	}
	return out
}

// NamedVars is an insertion-ordered string -> *variable.Variable map,
// used for both DataArray.Masks and DataArray.Attrs (spec.md §3).
type NamedVars struct {
	order []string
	m     map[string]*variable.Variable
}

// NewNamedVars returns an empty, ready-to-use NamedVars.
func NewNamedVars() NamedVars {
	return NamedVars{m: map[string]*variable.Variable{}}
}

func (n *NamedVars) ensure() {
	if n.m == nil {
		n.m = map[string]*variable.Variable{}
	}
}

// Set inserts or replaces the entry named name.
func (n *NamedVars) Set(name string, v *variable.Variable) {
	n.ensure()
	if _, ok := n.m[name]; !ok {
		n.order = append(n.order, name)
	}
	n.m[name] = v
}

// Get returns the entry named name, and whether it is present.
func (n NamedVars) Get(name string) (*variable.Variable, bool) {
	v, ok := n.m[name]
	return v, ok
}

// Delete removes the entry named name, if present.
func (n *NamedVars) Delete(name string) {
	if _, ok := n.m[name]; !ok {
		return
	}
	delete(n.m, name)
	for i, k := range n.order {
		if k == name {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Keys returns the entry names in insertion order.
func (n NamedVars) Keys() []string {
	return append([]string(nil), n.order...)
}

// Len returns the number of entries.
func (n NamedVars) Len() int { return len(n.order) }

// Clone returns a shallow copy, independent of the original for
// subsequent Set/Delete calls.
func (n NamedVars) Clone() NamedVars {
	out := NamedVars{order: append([]string(nil), n.order...), m: make(map[string]*variable.Variable, len(n.m))}
	for k, v := range n.m {
		out.m[k] = v
	}
	return out
}
