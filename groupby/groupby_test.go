package groupby_test

import (
	"testing"

	"github.com/nscipp/nscipp/dataset"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/groupby"
	"github.com/nscipp/nscipp/unit"
	"github.com/nscipp/nscipp/variable"
)

func dims(t *testing.T, labels []string, extents []int) dimensions.Dimensions {
	t.Helper()
	ds := make([]dim.Dim, len(labels))
	for i, l := range labels {
		ds[i] = dim.Of(l)
	}
	return dimensions.New(ds, extents)
}

func mustFloat64(t *testing.T, d dimensions.Dimensions, u unit.Unit, values []float64) *variable.Variable {
	t.Helper()
	v, err := variable.FromValuesFloat64(d, u, values, nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestGroupByCategoricalSum(t *testing.T) {
	x := dim.Of("x")
	labelsDim := dim.Of("labels")

	data := mustFloat64(t, dims(t, []string{"x"}, []int{4}), unit.Counts, []float64{1, 2, 3, 4})
	a := dataset.New("counts", data)
	labels, err := variable.FromValuesString(dims(t, []string{"x"}, []int{4}), []string{"a", "b", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	a.Coords.Set(labelsDim, labels)

	gb, err := groupby.New(a, labelsDim)
	if err != nil {
		t.Fatal(err)
	}
	if gb.NGroups() != 2 {
		t.Fatalf("want 2 groups, got %d", gb.NGroups())
	}

	out, err := gb.Sum()
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := out.Data.Float64Data()
	want := []float64{4, 6} // "a": 1+3, "b": 2+4
	for i, w := range want {
		if data2[i] != w {
			t.Fatalf("sum[%d] = %v, want %v", i, data2[i], w)
		}
	}
	labelsOut, err := out.Coord(labelsDim)
	if err != nil {
		t.Fatal(err)
	}
	strs, _ := labelsOut.StringData()
	if len(strs) != 2 || strs[0] != "a" || strs[1] != "b" {
		t.Fatalf("labels = %v, want [a b]", strs)
	}
	_ = x
}

func TestGroupByMaskedElementExcludedFromReduction(t *testing.T) {
	labelsDim := dim.Of("labels")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{4}), unit.Counts, []float64{1, 2, 3, 4})
	a := dataset.New("counts", data)
	labels, err := variable.FromValuesString(dims(t, []string{"x"}, []int{4}), []string{"a", "b", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	a.Coords.Set(labelsDim, labels)
	mask, err := variable.FromValuesBool(dims(t, []string{"x"}, []int{4}), []bool{true, false, false, false})
	if err != nil {
		t.Fatal(err)
	}
	a.Masks.Set("bad", mask)

	gb, err := groupby.New(a, labelsDim)
	if err != nil {
		t.Fatal(err)
	}
	out, err := gb.Sum()
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := out.Data.Float64Data()
	// group "a" is indices {0,2}; index 0 is masked out, so only 3 remains.
	if data2[0] != 3 {
		t.Fatalf("group a sum = %v, want 3 (index 0 masked out)", data2[0])
	}
}

func TestGroupByCategoricalConcat(t *testing.T) {
	labelsDim := dim.Of("labels")
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{4}), unit.Counts, []float64{1, 2, 3, 4})
	a := dataset.New("counts", data)
	labels, err := variable.FromValuesString(dims(t, []string{"x"}, []int{4}), []string{"a", "b", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	a.Coords.Set(labelsDim, labels)

	gb, err := groupby.New(a, labelsDim)
	if err != nil {
		t.Fatal(err)
	}
	out, err := gb.Concat()
	if err != nil {
		t.Fatal(err)
	}
	if !out.Data.IsBinned() {
		t.Fatal("want a binned result")
	}
	if out.Data.BinDim() != x {
		t.Fatalf("bin_dim = %v, want %v", out.Data.BinDim(), x)
	}
	pairs, err := out.Data.IndexPairs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 {
		t.Fatalf("want 2 bins, got %d", len(pairs))
	}
	buf, err := out.Data.BinBuffer().Copy().Float64Data()
	if err != nil {
		t.Fatal(err)
	}
	// group "a" is indices {0,2} -> values 1,3; group "b" is {1,3} -> values 2,4.
	a0, b0 := buf[pairs[0].Begin:pairs[0].End], buf[pairs[1].Begin:pairs[1].End]
	if len(a0) != 2 || a0[0] != 1 || a0[1] != 3 {
		t.Fatalf("group a bin = %v, want [1 3]", a0)
	}
	if len(b0) != 2 || b0[0] != 2 || b0[1] != 4 {
		t.Fatalf("group b bin = %v, want [2 4]", b0)
	}
}

func TestGroupByBinnedClassifiesByEdges(t *testing.T) {
	x := dim.Of("x")
	binsDim := dim.Of("bin")

	data := mustFloat64(t, dims(t, []string{"x"}, []int{5}), unit.Counts, []float64{1, 1, 1, 1, 1})
	a := dataset.New("counts", data)
	coord := mustFloat64(t, dims(t, []string{"x"}, []int{5}), unit.Meter, []float64{0.5, 1.5, 2.5, 3.5, 4.5})
	a.Coords.Set(x, coord)
	bins := mustFloat64(t, dims(t, []string{"bin"}, []int{3}), unit.Meter, []float64{0, 2, 4})

	gb, err := groupby.NewBinned(a, x, bins)
	if err != nil {
		t.Fatal(err)
	}
	if gb.NGroups() != 2 {
		t.Fatalf("want 2 groups, got %d", gb.NGroups())
	}
	out, err := gb.Sum()
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := out.Data.Float64Data()
	// bin [0,2): values 0.5,1.5 -> 2 entries; bin [2,4): 2.5,3.5 -> 2 entries; 4.5 dropped.
	if data2[0] != 2 || data2[1] != 2 {
		t.Fatalf("got %v, want [2 2]", data2)
	}
	_ = binsDim
}

func TestRangeOnPointCoord(t *testing.T) {
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{5}), unit.Counts, []float64{10, 11, 12, 13, 14})
	a := dataset.New("counts", data)
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{5}), unit.Second, []float64{0, 1, 2, 3, 4}))

	begin := variable.ScalarFloat64(1, unit.Second, nil)
	end := variable.ScalarFloat64(3, unit.Second, nil)
	out, err := groupby.Range(a, x, begin, end)
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := out.Data.Copy().Float64Data()
	if len(data2) != 2 || data2[0] != 11 || data2[1] != 12 {
		t.Fatalf("got %v, want [11 12]", data2)
	}
}

func TestRangeOnEdgeCoordKeepsBracketingEdges(t *testing.T) {
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3})
	a := dataset.New("counts", data)
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{4}), unit.Second, []float64{0, 1, 2, 3}))

	begin := variable.ScalarFloat64(1, unit.Second, nil)
	end := variable.ScalarFloat64(2, unit.Second, nil)
	out, err := groupby.Range(a, x, begin, end)
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := out.Data.Copy().Float64Data()
	if len(data2) != 1 || data2[0] != 2 {
		t.Fatalf("got %v, want [2]", data2)
	}
	coord, err := out.Coord(x)
	if err != nil {
		t.Fatal(err)
	}
	cdata, _ := coord.Copy().Float64Data()
	if len(cdata) != 2 || cdata[0] != 1 || cdata[1] != 2 {
		t.Fatalf("edges = %v, want [1 2]", cdata)
	}
}

func TestSingleOnPointCoord(t *testing.T) {
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{10, 20, 30})
	a := dataset.New("counts", data)
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Second, []float64{0, 1, 2}))

	out, err := groupby.Single(a, x, variable.ScalarFloat64(1, unit.Second, nil))
	if err != nil {
		t.Fatal(err)
	}
	if out.Data.Dims().Rank() != 0 {
		t.Fatalf("want rank 0, got %d", out.Data.Dims().Rank())
	}
	data2, _ := out.Data.Copy().Float64Data()
	if data2[0] != 20 {
		t.Fatalf("got %v, want 20", data2)
	}
}

func TestSingleOnEdgeCoordKeepsSizeOneRange(t *testing.T) {
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3})
	a := dataset.New("counts", data)
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{4}), unit.Second, []float64{0, 1, 2, 3}))

	out, err := groupby.Single(a, x, variable.ScalarFloat64(1.5, unit.Second, nil))
	if err != nil {
		t.Fatal(err)
	}
	if out.Data.Dims().Rank() != 1 {
		t.Fatalf("want rank 1 (size-1 range, not collapsed), got %d", out.Data.Dims().Rank())
	}
	coord, err := out.Coord(x)
	if err != nil {
		t.Fatal(err)
	}
	cdata, _ := coord.Copy().Float64Data()
	if len(cdata) != 2 || cdata[0] != 1 || cdata[1] != 2 {
		t.Fatalf("edges = %v, want [1 2]", cdata)
	}
}

func TestSingleNoMatchIsError(t *testing.T) {
	x := dim.Of("x")
	data := mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{10, 20, 30})
	a := dataset.New("counts", data)
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Second, []float64{0, 1, 2}))

	if _, err := groupby.Single(a, x, variable.ScalarFloat64(99, unit.Second, nil)); err == nil {
		t.Fatal("expected SliceError for a value matching no coord entry")
	}
}
