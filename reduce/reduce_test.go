package reduce_test

import (
	"math"
	"testing"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/reduce"
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

func TestSumRemovesDimAndAddsVariance(t *testing.T) {
	d := dims(t, []string{"x", "y"}, []int{2, 3})
	v, err := variable.FromValuesFloat64(d, unit.Meter, []float64{1, 2, 3, 4, 5, 6}, []float64{1, 1, 1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	out, err := reduce.Sum(v, dim.Of("y"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Dims().Contains(dim.Of("y")) {
		t.Fatal("sum should remove the reduced dim")
	}
	data, _ := out.Float64Data()
	want := []float64{6, 15}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want[i], data[i])
		}
	}
	variances, _ := out.Float64Variances()
	if variances[0] != 3 || variances[1] != 3 {
		t.Fatalf("expected summed variances of 3, got %v", variances)
	}
}

func TestSumWithMaskSkipsMaskedEntries(t *testing.T) {
	d := dims(t, []string{"x"}, []int{4})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := variable.FromValuesBool(d, []bool{false, true, false, true})
	if err != nil {
		t.Fatal(err)
	}
	out, err := reduce.Sum(v, dim.Of("x"), mask)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	if data[0] != 4 { // 1 + 3, skipping the masked 2 and 4
		t.Fatalf("want 4, got %v", data[0])
	}
}

func TestMeanDividesByUnmaskedCountAndNaNsWhenEmpty(t *testing.T) {
	d := dims(t, []string{"x"}, []int{2})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{10, 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := variable.FromValuesBool(d, []bool{true, true})
	if err != nil {
		t.Fatal(err)
	}
	out, err := reduce.Mean(v, dim.Of("x"), mask)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := out.Float64Data()
	if !math.IsNaN(data[0]) {
		t.Fatalf("expected NaN mean for a fully masked reduction, got %v", data[0])
	}
}

func TestMinMaxIdentitiesOnFullyMaskedInput(t *testing.T) {
	d := dims(t, []string{"x"}, []int{2})
	v, err := variable.FromValuesFloat64(d, unit.Dimensionless, []float64{10, 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := variable.FromValuesBool(d, []bool{true, true})
	if err != nil {
		t.Fatal(err)
	}
	min, err := reduce.Min(v, dim.Of("x"), mask)
	if err != nil {
		t.Fatal(err)
	}
	max, err := reduce.Max(v, dim.Of("x"), mask)
	if err != nil {
		t.Fatal(err)
	}
	minData, _ := min.Float64Data()
	maxData, _ := max.Float64Data()
	if !math.IsInf(minData[0], 1) {
		t.Fatalf("expected +Inf identity for min, got %v", minData[0])
	}
	if !math.IsInf(maxData[0], -1) {
		t.Fatalf("expected -Inf identity for max, got %v", maxData[0])
	}
}

func TestAllAny(t *testing.T) {
	d := dims(t, []string{"x"}, []int{3})
	v, err := variable.FromValuesBool(d, []bool{true, true, false})
	if err != nil {
		t.Fatal(err)
	}
	all, err := reduce.All(v, dim.Of("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	any, err := reduce.Any(v, dim.Of("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	allData, _ := all.BoolData()
	anyData, _ := any.BoolData()
	if allData[0] != false {
		t.Fatal("all should be false when one entry is false")
	}
	if anyData[0] != true {
		t.Fatal("any should be true when at least one entry is true")
	}
}

func TestBinsSumAndMean(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{5})
	buf, err := variable.FromValuesFloat64(bufDims, unit.Counts, []float64{1, 2, 3, 4, 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	outerDims := dims(t, []string{"spectrum"}, []int{2})
	idx, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 5}})
	if err != nil {
		t.Fatal(err)
	}
	binned, err := variable.MakeBins(idx, dim.Of("event"), buf)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := reduce.BinsSum(binned)
	if err != nil {
		t.Fatal(err)
	}
	sumData, _ := sum.Float64Data()
	if sumData[0] != 3 || sumData[1] != 12 {
		t.Fatalf("want [3 12], got %v", sumData)
	}
	mean, err := reduce.BinsMean(binned)
	if err != nil {
		t.Fatal(err)
	}
	meanData, _ := mean.Float64Data()
	if meanData[0] != 1.5 || meanData[1] != 4 {
		t.Fatalf("want [1.5 4], got %v", meanData)
	}
}

func TestBinsMeanEmptyBinIsNaN(t *testing.T) {
	bufDims := dims(t, []string{"event"}, []int{2})
	buf, err := variable.FromValuesFloat64(bufDims, unit.Counts, []float64{1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	outerDims := dims(t, []string{"spectrum"}, []int{2})
	idx, err := variable.IndexPairsFromSlice(outerDims, []spatial3.IndexPair{{Begin: 0, End: 2}, {Begin: 2, End: 2}})
	if err != nil {
		t.Fatal(err)
	}
	binned, err := variable.MakeBins(idx, dim.Of("event"), buf)
	if err != nil {
		t.Fatal(err)
	}
	mean, err := reduce.BinsMean(binned)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := mean.Float64Data()
	if !math.IsNaN(data[1]) {
		t.Fatalf("want NaN for an empty bin, got %v", data[1])
	}
}
