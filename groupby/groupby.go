// Package groupby implements spec.md §4.8's GroupBy and
// slice-by-value collaborators: coordinate-driven grouping
// (categorical or bin-edged) with per-group reductions re-stacked
// along a new dim, and value-based slicing of a sorted coord. It is
// grounded on stat.go's grouped-moment helpers (stat.go computes
// Mean/Variance over a named column the way a GroupBy reduction
// computes them per group) and floats.go's Find (the linear scan that
// locates a value's bin/position, generalized here to a sorted-edge
// binary search and a categorical first-occurrence scan).
package groupby

import (
	"sort"

	"github.com/nscipp/nscipp/dataset"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/reduce"
	"github.com/nscipp/nscipp/shapeops"
	"github.com/nscipp/nscipp/spatial3"
	"github.com/nscipp/nscipp/variable"
)

// GroupBy partitions array along the dim its key coord is aligned
// with into groups, ready for a per-group reduction re-stacked along
// NewDim (spec.md §4.8).
type GroupBy struct {
	array  *dataset.DataArray
	source dim.Dim // the dim of array.Data each group mask selects over
	NewDim dim.Dim // the new dim a reduction result is stacked along
	groups [][]bool // groups[g][i] reports whether source-index i belongs to group g
	labels *variable.Variable // the new coord attached to a reduction result: unique values (categorical) or bin edges
}

// New groups array by its categorical coord named key: key must name
// a 1-D coord; each unique value (in first-occurrence order) becomes
// a group, and the new dim is key itself (spec.md §4.8, scenario 7 of
// §8: `groupby(a, labels).sum(X)` stacks along dim "labels").
func New(array *dataset.DataArray, key dim.Dim) (*GroupBy, error) {
	coord, err := array.Coord(key)
	if err != nil {
		return nil, err
	}
	if coord.Dims().Rank() != 1 {
		return nil, &errs.DimensionError{Op: "groupby", Reason: "key coord must be 1-D"}
	}
	source := coord.Dims().DimAt(0)

	switch coord.Dtype() {
	case dtype.String:
		values, err := coord.Copy().StringData()
		if err != nil {
			return nil, err
		}
		var uniq []string
		seen := map[string]int{}
		groups := [][]bool{}
		for i, v := range values {
			g, ok := seen[v]
			if !ok {
				g = len(uniq)
				seen[v] = g
				uniq = append(uniq, v)
				groups = append(groups, make([]bool, len(values)))
			}
			groups[g][i] = true
		}
		labels, err := variable.FromValuesString(dimensions.New([]dim.Dim{key}, []int{len(uniq)}), uniq)
		if err != nil {
			return nil, err
		}
		return &GroupBy{array: array, source: source, NewDim: key, groups: groups, labels: labels}, nil
	case dtype.Float64:
		values, err := coord.Copy().Float64Data()
		if err != nil {
			return nil, err
		}
		var uniq []float64
		groups := [][]bool{}
		for i, v := range values {
			g := -1
			for j, u := range uniq {
				if u == v {
					g = j
					break
				}
			}
			if g < 0 {
				g = len(uniq)
				uniq = append(uniq, v)
				groups = append(groups, make([]bool, len(values)))
			}
			groups[g][i] = true
		}
		labels, err := variable.FromValuesFloat64(dimensions.New([]dim.Dim{key}, []int{len(uniq)}), coord.Unit(), uniq, nil)
		if err != nil {
			return nil, err
		}
		return &GroupBy{array: array, source: source, NewDim: key, groups: groups, labels: labels}, nil
	default:
		return nil, &errs.TypeError{Op: "groupby", Dtype: coord.Dtype().String()}
	}
}

// NewBinned groups array by classifying its key coord's values into
// the half-open bins described by bins (a 1-D edge Variable): values
// outside [bins[0], bins[last]) are dropped from every group, and the
// new dim is bins' own dim label (spec.md §4.8).
func NewBinned(array *dataset.DataArray, key dim.Dim, bins *variable.Variable) (*GroupBy, error) {
	coord, err := array.Coord(key)
	if err != nil {
		return nil, err
	}
	if coord.Dims().Rank() != 1 {
		return nil, &errs.DimensionError{Op: "groupby", Reason: "key coord must be 1-D"}
	}
	if bins.Dims().Rank() != 1 {
		return nil, &errs.DimensionError{Op: "groupby", Reason: "bins must be 1-D"}
	}
	source := coord.Dims().DimAt(0)
	newDim := bins.Dims().DimAt(0)

	edges, err := bins.Copy().Float64Data()
	if err != nil {
		return nil, err
	}
	if len(edges) < 2 {
		return nil, &errs.BinEdgeError{Op: "groupby", Reason: "bins must have at least two edges"}
	}
	values, err := coord.Copy().Float64Data()
	if err != nil {
		return nil, err
	}
	nGroups := len(edges) - 1
	groups := make([][]bool, nGroups)
	for g := range groups {
		groups[g] = make([]bool, len(values))
	}
	for i, v := range values {
		// half-open [edges[g], edges[g+1]); sort.Search finds the
		// first edge strictly greater than v.
		g := sort.Search(len(edges), func(j int) bool { return edges[j] > v }) - 1
		if g < 0 || g >= nGroups {
			continue // out of range: dropped from every group
		}
		groups[g][i] = true
	}
	return &GroupBy{array: array, source: source, NewDim: newDim, groups: groups, labels: bins}, nil
}

// NGroups returns the number of groups.
func (g *GroupBy) NGroups() int { return len(g.groups) }

// exclusionMask returns the per-element skip mask reduce.* expects
// for group gi: true where the element is NOT in the group, or is
// excluded by one of array's own masks (logical OR across masks,
// spec.md §4.8: "masks are ... pointwise-applied for arithmetic
// reductions").
func (g *GroupBy) exclusionMask(gi int) (*variable.Variable, error) {
	n := len(g.groups[gi])
	excl := make([]bool, n)
	for i, in := range g.groups[gi] {
		excl[i] = !in
	}
	for _, name := range g.array.Masks.Keys() {
		m, _ := g.array.Masks.Get(name)
		if !m.Dims().Contains(g.source) {
			continue
		}
		mb, err := m.Broadcast(g.array.Data.Dims())
		if err != nil {
			return nil, err
		}
		data, err := mb.Copy().BoolData()
		if err != nil {
			return nil, err
		}
		// the mask's own layout matches array.Data's dims; walk it in
		// the same order exclusionMask's source-axis index does only
		// when array.Data is 1-D (the common groupby case). Higher
		// rank callers should mask before grouping.
		if len(data) == n {
			for i := range excl {
				excl[i] = excl[i] || data[i]
			}
		}
	}
	return variable.FromValuesBool(dimensions.New([]dim.Dim{g.source}, []int{n}), excl)
}

func (g *GroupBy) reduceEach(reduceFn func(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error)) ([]*variable.Variable, error) {
	out := make([]*variable.Variable, g.NGroups())
	for gi := range g.groups {
		mask, err := g.exclusionMask(gi)
		if err != nil {
			return nil, err
		}
		r, err := reduceFn(g.array.Data, g.source, mask)
		if err != nil {
			return nil, err
		}
		out[gi] = r
	}
	return out, nil
}

// Sum applies reduce.Sum per group and stacks the results along
// NewDim, attaching labels as NewDim's coord.
func (g *GroupBy) Sum() (*dataset.DataArray, error) { return g.stack(reduce.Sum) }

// Mean applies reduce.Mean per group and stacks the results.
func (g *GroupBy) Mean() (*dataset.DataArray, error) { return g.stack(reduce.Mean) }

// Min applies reduce.Min per group and stacks the results.
func (g *GroupBy) Min() (*dataset.DataArray, error) { return g.stack(reduce.Min) }

// Max applies reduce.Max per group and stacks the results.
func (g *GroupBy) Max() (*dataset.DataArray, error) { return g.stack(reduce.Max) }

// All applies reduce.All per group and stacks the results.
func (g *GroupBy) All() (*dataset.DataArray, error) { return g.stack(reduce.All) }

// Any applies reduce.Any per group and stacks the results.
func (g *GroupBy) Any() (*dataset.DataArray, error) { return g.stack(reduce.Any) }

// Concat is the non-collapsing sibling of Sum/Mean/.../Any (spec.md
// §4.8: "Reductions (sum, mean, min, max, all, any, concat) are
// applied per group and re-stacked along the new group dim"): instead
// of combining each group's elements into one value, it keeps every
// element, gathered along g.source in its original order. Groups
// generally contribute different counts of elements, so the result
// cannot be stacked densely the way a scalar-per-group reduction can;
// it is returned as a binned Variable with one bin per group, the
// same data model NewBinned's own classification builds.
func (g *GroupBy) Concat() (*dataset.DataArray, error) {
	var buf *variable.Variable
	pairs := make([]spatial3.IndexPair, g.NGroups())
	pos := 0
	for gi := range g.groups {
		excl, err := g.exclusionMask(gi)
		if err != nil {
			return nil, err
		}
		exclData, err := excl.Copy().BoolData()
		if err != nil {
			return nil, err
		}
		begin := pos
		for i, skip := range exclData {
			if skip {
				continue
			}
			elem, err := g.array.Data.Slice(g.source, i, i+1)
			if err != nil {
				return nil, err
			}
			if buf == nil {
				buf = elem
			} else {
				buf, err = shapeops.Concat(buf, elem, g.source)
				if err != nil {
					return nil, err
				}
			}
			pos++
		}
		pairs[gi] = spatial3.IndexPair{Begin: begin, End: pos}
	}
	if buf == nil {
		var err error
		buf, err = g.array.Data.Slice(g.source, 0, 0)
		if err != nil {
			return nil, err
		}
	}

	outerDims := dimensions.Dimensions{}
	if err := outerDims.Push(g.NewDim, g.NGroups()); err != nil {
		return nil, err
	}
	idxVar, err := variable.IndexPairsFromSlice(outerDims, pairs)
	if err != nil {
		return nil, err
	}
	binned, err := variable.MakeBins(idxVar, g.source, buf)
	if err != nil {
		return nil, err
	}

	out := dataset.New(g.array.Name, binned)
	out.Coords.Set(g.NewDim, g.labels)
	for _, k := range g.array.Coords.Keys() {
		if k == g.NewDim || k == g.source {
			continue
		}
		v, _ := g.array.Coords.Get(k)
		if !v.Dims().Contains(g.source) {
			out.Coords.Set(k, v)
		}
	}
	return out, nil
}

func (g *GroupBy) stack(reduceFn func(v *variable.Variable, d dim.Dim, mask *variable.Variable) (*variable.Variable, error)) (*dataset.DataArray, error) {
	groupResults, err := g.reduceEach(reduceFn)
	if err != nil {
		return nil, err
	}
	stacked, err := stackVariables(g.NewDim, groupResults)
	if err != nil {
		return nil, err
	}
	out := dataset.New(g.array.Name, stacked)
	out.Coords.Set(g.NewDim, g.labels)
	for _, k := range g.array.Coords.Keys() {
		if k == g.NewDim || k == g.source {
			continue
		}
		v, _ := g.array.Coords.Get(k)
		if !v.Dims().Contains(g.source) {
			out.Coords.Set(k, v)
		}
	}
	return out, nil
}

// stackVariables concatenates a slice of Variables, all sharing the
// same dims/dtype/unit/variance-presence, along a fresh outermost dim
// newDim.
func stackVariables(newDim dim.Dim, vs []*variable.Variable) (*variable.Variable, error) {
	if len(vs) == 0 {
		return nil, &errs.DimensionError{Op: "groupby", Reason: "no groups to stack"}
	}
	inner := vs[0].Dims()
	outDims := dimensions.Dimensions{}
	if err := outDims.Push(newDim, len(vs)); err != nil {
		return nil, err
	}
	for _, lbl := range inner.Labels() {
		if err := outDims.Push(lbl, inner.Extent(lbl)); err != nil {
			return nil, err
		}
	}
	out, err := variable.MakeVariable(outDims, vs[0].Unit(), vs[0].Dtype(), vs[0].HasVariances())
	if err != nil {
		return nil, err
	}
	volume := inner.Volume()
	switch vs[0].Dtype() {
	case dtype.Float64, dtype.Float32:
		outData, err := out.FloatValues()
		if err != nil {
			return nil, err
		}
		outVar, hasOutVar, err := out.FloatVariances()
		if err != nil {
			return nil, err
		}
		for gi, v := range vs {
			data, err := v.Copy().FloatValues()
			if err != nil {
				return nil, err
			}
			for i := 0; i < volume; i++ {
				outData.Set(gi*volume+i, data.Get(i))
			}
			if hasOutVar {
				variances, hasVar, err := v.Copy().FloatVariances()
				if err != nil {
					return nil, err
				}
				if hasVar {
					for i := 0; i < volume; i++ {
						outVar.Set(gi*volume+i, variances.Get(i))
					}
				}
			}
		}
	case dtype.Bool:
		outData, _ := out.BoolData()
		for gi, v := range vs {
			data, err := v.Copy().BoolData()
			if err != nil {
				return nil, err
			}
			copy(outData[gi*volume:(gi+1)*volume], data)
		}
	default:
		return nil, &errs.TypeError{Op: "groupby", Dtype: vs[0].Dtype().String()}
	}
	return out, nil
}
