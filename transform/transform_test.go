package transform_test

import (
	"testing"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/spatial3"
	"github.com/nscipp/nscipp/transform"
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

func mkFloat(t *testing.T, d dimensions.Dimensions, u unit.Unit, values, variances []float64) *variable.Variable {
	t.Helper()
	v, err := variable.FromValuesFloat64(d, u, values, variances)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAddPropagatesVariance(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	a := mkFloat(t, d, unit.Meter, []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3})
	b := mkFloat(t, d, unit.Meter, []float64{10, 20, 30}, []float64{1, 2, 3})

	out, err := transform.Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	variances, _ := out.Float64Variances()
	wantData := []float64{11, 22, 33}
	wantVar := []float64{1.1, 2.2, 3.3}
	for i := range wantData {
		if data[i] != wantData[i] {
			t.Fatalf("value[%d]: want %v got %v", i, wantData[i], data[i])
		}
		if variances[i] != wantVar[i] {
			t.Fatalf("variance[%d]: want %v got %v", i, wantVar[i], variances[i])
		}
	}
	if !out.Unit().Equal(unit.Meter) {
		t.Fatalf("want meter, got %s", out.Unit())
	}
}

func TestAddRejectsUnitMismatch(t *testing.T) {
	d := dims(t, []string{"x"}, []int{2})
	a := mkFloat(t, d, unit.Meter, []float64{1, 2}, nil)
	b := mkFloat(t, d, unit.Second, []float64{1, 2}, nil)
	if _, err := transform.Add(a, b); err == nil {
		t.Fatal("expected UnitError adding incompatible units")
	}
}

func TestMulMultipliesUnitsAndPropagatesVariance(t *testing.T) {
	d := dims(t, []string{"x"}, []int{1})
	a := mkFloat(t, d, unit.Meter, []float64{2}, []float64{0.5})
	b := mkFloat(t, d, unit.Second, []float64{3}, []float64{0.25})
	out, err := transform.Mul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	variances, _ := out.Float64Variances()
	if data[0] != 6 {
		t.Fatalf("want 6, got %v", data[0])
	}
	wantVar := 0.5*9 + 0.25*4
	if variances[0] != wantVar {
		t.Fatalf("want %v, got %v", wantVar, variances[0])
	}
}

func TestDivZeroNumeratorShortcut(t *testing.T) {
	d := dims(t, []string{"x"}, []int{1})
	a := mkFloat(t, d, unit.Dimensionless, []float64{0}, []float64{2})
	b := mkFloat(t, d, unit.Dimensionless, []float64{5}, []float64{100})
	out, err := transform.Div(a, b)
	if err != nil {
		t.Fatal(err)
	}
	variances, _ := out.Float64Variances()
	want := 2.0 / 25.0
	if variances[0] != want {
		t.Fatalf("want %v, got %v (a==0 shortcut should ignore b's variance)", want, variances[0])
	}
}

func TestBroadcastingDimensionsAdd(t *testing.T) {
	// Output dims are the union of a's then b's dims in the order each
	// first appears (spec.md §4.4 step 3): a contributes x first, so
	// the result is shaped (x, y) with x outermost even though b's own
	// storage is (y, x).
	row := dims(t, []string{"x"}, []int{3})
	col := dims(t, []string{"y", "x"}, []int{2, 3})
	a := mkFloat(t, row, unit.Dimensionless, []float64{1, 2, 3}, nil)
	b := mkFloat(t, col, unit.Dimensionless, []float64{10, 20, 30, 40, 50, 60}, nil)
	out, err := transform.Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	want := []float64{11, 41, 22, 52, 33, 63}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want[i], data[i])
		}
	}
}

func TestBroadcastingVarianceCarryingOperandRefused(t *testing.T) {
	row := dims(t, []string{"x"}, []int{3})
	col := dims(t, []string{"y", "x"}, []int{2, 3})
	a := mkFloat(t, row, unit.Dimensionless, []float64{1, 2, 3}, []float64{1, 1, 1})
	b := mkFloat(t, col, unit.Dimensionless, []float64{10, 20, 30, 40, 50, 60}, nil)
	if _, err := transform.Add(a, b); err == nil {
		t.Fatal("expected broadcasting a variance-carrying operand to be refused")
	}
}

func TestComparisons(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	a := mkFloat(t, d, unit.Meter, []float64{1, 2, 3}, nil)
	b := mkFloat(t, d, unit.Meter, []float64{1, 5, 2}, nil)
	out, err := transform.Lt(a, b)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.BoolData()
	want := []bool{false, true, false}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want[i], data[i])
		}
	}
}

func TestIsClose(t *testing.T) {
	d := dims(t, []string{"x"}, []int{2})
	a := mkFloat(t, d, unit.Dimensionless, []float64{1.0, 100.0}, nil)
	b := mkFloat(t, d, unit.Dimensionless, []float64{1.0000001, 100.05}, nil)
	out, err := transform.IsClose(a, b, 1e-3, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.BoolData()
	if !data[0] {
		t.Fatal("expected near-equal values within atol to be close")
	}
	if !data[1] {
		t.Fatal("expected values within rtol to be close")
	}
}

func TestSinDegreesAndRadians(t *testing.T) {
	d := dims(t, []string{"x"}, []int{1})
	deg := mkFloat(t, d, unit.Degree, []float64{90}, nil)
	out, err := transform.Sin(deg)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	if diff := data[0] - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("sin(90deg) should be 1, got %v", data[0])
	}
}

func TestSinRejectsNonAngleUnit(t *testing.T) {
	d := dims(t, []string{"x"}, []int{1})
	v := mkFloat(t, d, unit.Meter, []float64{1}, nil)
	if _, err := transform.Sin(v); err == nil {
		t.Fatal("expected UnitError for sin of a non-angle unit")
	}
}

func TestBinnedBothBinaryRequiresIdenticalIndices(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{4})
	bufA := mkFloat(t, bufDims, unit.Counts, []float64{1, 2, 3, 4}, nil)
	bufB := mkFloat(t, bufDims, unit.Counts, []float64{10, 20, 30, 40}, nil)

	outerDims := dims(t, []string{"spectrum"}, []int{2})
	idxA, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
	if err != nil {
		t.Fatal(err)
	}
	idxB, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 1}, {Begin: 1, End: 4}})
	if err != nil {
		t.Fatal(err)
	}
	binnedA, err := variable.MakeBins(idxA, dim.Of("event"), bufA)
	if err != nil {
		t.Fatal(err)
	}
	binnedB, err := variable.MakeBins(idxB, dim.Of("event"), bufB)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := transform.Add(binnedA, binnedB); err == nil {
		t.Fatal("expected BinnedDataError for differing index arrays")
	}
}

func TestBinnedBothBinaryCombinesMatchingIndices(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{4})
	bufA := mkFloat(t, bufDims, unit.Counts, []float64{1, 2, 3, 4}, nil)
	bufB := mkFloat(t, bufDims, unit.Counts, []float64{10, 20, 30, 40}, nil)

	outerDims := dims(t, []string{"spectrum"}, []int{2})
	idx, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
	if err != nil {
		t.Fatal(err)
	}
	binnedA, err := variable.MakeBins(idx, dim.Of("event"), bufA)
	if err != nil {
		t.Fatal(err)
	}
	binnedB, err := variable.MakeBins(idx, dim.Of("event"), bufB)
	if err != nil {
		t.Fatal(err)
	}
	out, err := transform.Add(binnedA, binnedB)
	if err != nil {
		t.Fatal(err)
	}
	data, err := out.BinBuffer().Float64Data()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{11, 22, 33, 44}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want[i], data[i])
		}
	}
}

func TestBinnedScalarBroadcastsPerBin(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{4})
	buf := mkFloat(t, bufDims, unit.Counts, []float64{1, 2, 3, 4}, nil)

	outerDims := dims(t, []string{"spectrum"}, []int{2})
	idx, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 4}})
	if err != nil {
		t.Fatal(err)
	}
	binned, err := variable.MakeBins(idx, dim.Of("event"), buf)
	if err != nil {
		t.Fatal(err)
	}
	scalars := mkFloat(t, outerDims, unit.Counts, []float64{100, 1000}, nil)

	out, err := transform.Add(binned, scalars)
	if err != nil {
		t.Fatal(err)
	}
	data, err := out.BinBuffer().Float64Data()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{101, 102, 1003, 1004}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want[i], data[i])
		}
	}
}

func TestNorm(t *testing.T) {
	d := dims(t, []string{"x"}, []int{2})
	v, err := variable.FromValuesVector3(d, unit.Meter, []spatial3.Vector3{{3, 4, 0}, {0, 0, 5}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := transform.Norm(v)
	if err != nil {
		t.Fatal(err)
	}
	data, err := out.Float64Data()
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 5 || data[1] != 5 {
		t.Fatalf("got %v, want [5 5]", data)
	}
	if !out.Unit().Equal(unit.Meter) {
		t.Fatalf("want unit preserved, got %v", out.Unit())
	}
}
