package groupby

import (
	"sort"

	"github.com/nscipp/nscipp/dataset"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

// coordValues returns coord's 1-D values and the owning array's
// extent along d, after checking coord is 1-D and unit-compatible
// with u.
func coordValues(array *dataset.DataArray, d dim.Dim, u unit.Unit) (values []float64, ownerExtent int, err error) {
	coord, err := array.Coord(d)
	if err != nil {
		return nil, 0, err
	}
	if coord.Dims().Rank() != 1 {
		return nil, 0, &errs.DimensionError{Op: "slice_by_value", Reason: "coord must be 1-D"}
	}
	if err := unit.CheckEqual("slice_by_value", coord.Unit(), u); err != nil {
		return nil, 0, err
	}
	values, err = coord.Copy().Float64Data()
	if err != nil {
		return nil, 0, err
	}
	return values, array.Dims().Extent(d), nil
}

func ascending(values []float64) bool {
	return len(values) < 2 || values[0] <= values[len(values)-1]
}

func searchFirstGE(values []float64, x float64, asc bool) int {
	return sort.Search(len(values), func(i int) bool {
		if asc {
			return values[i] >= x
		}
		return values[i] <= x
	})
}

// edgeRange returns the contiguous [lo,hi) bin range whose edges
// intersect [begin,end) (direction-agnostic: works for ascending or
// descending edges), or an error if no bin intersects.
func edgeRange(edges []float64, begin, end float64) (lo, hi int, err error) {
	bLo, bHi := begin, end
	if bLo > bHi {
		bLo, bHi = bHi, bLo
	}
	n := len(edges) - 1
	lo, hi = -1, -1
	for i := 0; i < n; i++ {
		e0, e1 := edges[i], edges[i+1]
		if e0 > e1 {
			e0, e1 = e1, e0
		}
		if e1 > bLo && e0 < bHi {
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	if lo < 0 {
		return 0, 0, &errs.SliceError{Op: "slice_by_value", Reason: "range does not intersect any bin"}
	}
	return lo, hi, nil
}

// Range selects array's sub-range along d whose coord value falls in
// [begin,end): a closed-open range of a point-valued coord, or every
// bin whose edges intersect [begin,end) for a bin-edge coord (spec.md
// §4.8, scenario 3 of §8).
func Range(array *dataset.DataArray, d dim.Dim, begin, end *variable.Variable) (*dataset.DataArray, error) {
	b, err := begin.Copy().Float64Data()
	if err != nil {
		return nil, err
	}
	e, err := end.Copy().Float64Data()
	if err != nil {
		return nil, err
	}
	values, ownerExtent, err := coordValues(array, d, begin.Unit())
	if err != nil {
		return nil, err
	}
	if err := unit.CheckEqual("slice_by_value", begin.Unit(), end.Unit()); err != nil {
		return nil, err
	}
	if len(values) == ownerExtent+1 {
		lo, hi, err := edgeRange(values, b[0], e[0])
		if err != nil {
			return nil, err
		}
		return array.SliceEdgeAware(d, lo, hi)
	}
	asc := ascending(values)
	lo := searchFirstGE(values, b[0], asc)
	hi := searchFirstGE(values, e[0], asc)
	return array.Slice(d, lo, hi)
}

// Single selects array's entry along d matching value: for a
// point-valued coord, the unique entry equal to value (*errs.SliceError
// if zero or more than one match); for a bin-edge coord, the single
// bin containing value, kept as a size-1 slice so its bracketing
// edges remain attached (*errs.SliceError if out of range).
func Single(array *dataset.DataArray, d dim.Dim, value *variable.Variable) (*dataset.DataArray, error) {
	v, err := value.Copy().Float64Data()
	if err != nil {
		return nil, err
	}
	values, ownerExtent, err := coordValues(array, d, value.Unit())
	if err != nil {
		return nil, err
	}
	if len(values) == ownerExtent+1 {
		for i := 0; i < len(values)-1; i++ {
			e0, e1 := values[i], values[i+1]
			if e0 > e1 {
				e0, e1 = e1, e0
			}
			if v[0] >= e0 && v[0] < e1 {
				return array.SliceEdgeAware(d, i, i+1)
			}
		}
		return nil, &errs.SliceError{Op: "slice_by_value", Reason: "value is out of range of the bin edges"}
	}
	match := -1
	for i, x := range values {
		if x == v[0] {
			if match >= 0 {
				return nil, &errs.SliceError{Op: "slice_by_value", Reason: "value matches more than one coord entry"}
			}
			match = i
		}
	}
	if match < 0 {
		return nil, &errs.SliceError{Op: "slice_by_value", Reason: "value matches no coord entry"}
	}
	return array.SliceAt(d, match)
}
