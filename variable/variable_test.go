package variable_test

import (
	"testing"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/spatial3"
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

func TestMakeVariableZeroed(t *testing.T) {
	d := dims(t, []string{"x", "y"}, []int{2, 3})
	v, err := variable.MakeVariable(d, unit.Meter, dtype.Float64, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err := v.Float64Data()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 6 {
		t.Fatalf("want 6 elements, got %d", len(data))
	}
	for _, x := range data {
		if x != 0 {
			t.Fatalf("expected zeroed storage, got %v", x)
		}
	}
}

func TestMakeVariableRejectsVarianceOnNonFloat(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	if _, err := variable.MakeVariable(d, unit.Dimensionless, dtype.Bool, true); err == nil {
		t.Fatal("expected error requesting variances on a bool Variable")
	}
}

func TestFromValuesFloat64(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	v, err := variable.FromValuesFloat64(d, unit.Second, []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := v.Float64Data()
	if data[1] != 2 {
		t.Fatalf("want 2, got %v", data[1])
	}
	variances, _ := v.Float64Variances()
	if variances[2] != 0.3 {
		t.Fatalf("want 0.3, got %v", variances[2])
	}
}

func TestCopyIsIndependent(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cp := v.Copy()
	cpData, _ := cp.Float64Data()
	cpData[0] = 99
	vData, _ := v.Float64Data()
	if vData[0] == 99 {
		t.Fatal("Copy must not share storage with the original")
	}
}

func TestSliceView(t *testing.T) {
	d := dims(t, []string{"x"}, []int{5})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{0, 1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := v.Slice(dim.Of("x"), 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dims().Extent(dim.Of("x")) != 2 {
		t.Fatalf("want extent 2, got %d", s.Dims().Extent(dim.Of("x")))
	}
	sCopy := s.Copy()
	sData, _ := sCopy.Float64Data()
	if sData[0] != 1 || sData[1] != 2 {
		t.Fatalf("unexpected slice contents %v", sData)
	}
}

func TestSliceAtIsReadOnlyAndWraps(t *testing.T) {
	d := dims(t, []string{"x"}, []int{5})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{0, 1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	at, err := v.SliceAt(dim.Of("x"), -1)
	if err != nil {
		t.Fatal(err)
	}
	if !at.ReadOnly() {
		t.Fatal("SliceAt should produce a read-only view")
	}
	atCopy := at.Copy()
	data, _ := atCopy.Float64Data()
	if data[0] != 4 {
		t.Fatalf("negative index should wrap to the last element, got %v", data[0])
	}
}

func TestTransposePermutesStrides(t *testing.T) {
	d := dims(t, []string{"x", "y"}, []int{2, 3})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{1, 2, 3, 4, 5, 6}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := v.Transpose([]dim.Dim{dim.Of("y"), dim.Of("x")})
	if err != nil {
		t.Fatal(err)
	}
	trCopy := tr.Copy()
	data, _ := trCopy.Float64Data()
	want := []float64{1, 4, 2, 5, 3, 6}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("transpose mismatch at %d: want %v, got %v", i, want[i], data[i])
		}
	}
}

func TestBroadcastAddsStrideZeroDim(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	target := dims(t, []string{"y", "x"}, []int{2, 3})
	b, err := v.Broadcast(target)
	if err != nil {
		t.Fatal(err)
	}
	if !b.ReadOnly() {
		t.Fatal("Broadcast should produce a read-only view")
	}
	bCopy := b.Copy()
	data, _ := bCopy.Float64Data()
	want := []float64{1, 2, 3, 1, 2, 3}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("broadcast mismatch at %d: want %v, got %v", i, want[i], data[i])
		}
	}
}

func TestBroadcastRejectsNonSubset(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	bad := dims(t, []string{"x"}, []int{4})
	if _, err := v.Broadcast(bad); err == nil {
		t.Fatal("expected error broadcasting to a conflicting extent")
	}
}

func TestMakeBinsRejectsOutOfRangeIndices(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{3})
	buf, err := variable.FromValuesFloat64(bufDims, unit.Counts, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	idxDims := dims(t, []string{"spectrum"}, []int{1})
	idx, err := variable.IndexPairsFromSlice(idxDims, []spatial3.IndexPair{{Begin: 0, End: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := variable.MakeBins(idx, dim.Of("event"), buf); err == nil {
		t.Fatal("expected BinnedDataError for an out-of-range index pair")
	}
}

func TestMakeBinsAccepts(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{5})
	buf, err := variable.FromValuesFloat64(bufDims, unit.Counts, []float64{1, 2, 3, 4, 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	idxDims := dims(t, []string{"spectrum"}, []int{2})
	idx, err := variable.IndexPairsFromSlice(idxDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 5}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := variable.MakeBins(idx, dim.Of("event"), buf)
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsBinned() {
		t.Fatal("expected a binned Variable")
	}
	pairs, err := b.IndexPairs()
	if err != nil {
		t.Fatal(err)
	}
	if pairs[0].Len() != 2 || pairs[1].Len() != 3 {
		t.Fatalf("unexpected bin lengths %v", pairs)
	}
}
