package dataset_test

import (
	"testing"

	"github.com/nscipp/nscipp/dataset"
	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/unit"
)

func TestSetGetKeepsInsertionOrder(t *testing.T) {
	ds := dataset.NewDataset()
	x := dim.Of("x")
	ds.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	ds.Set("b", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 1, 1}), dataset.NewNamedVars())
	ds.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{2, 2, 2}), dataset.NewNamedVars())
	if got, want := ds.Keys(), []string{"b", "a"}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestGetReturnsSharedCoords(t *testing.T) {
	ds := dataset.NewDataset()
	x := dim.Of("x")
	ds.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	ds.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	item, err := ds.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := item.Coord(x); err != nil {
		t.Fatalf("item should see dataset's shared coord: %v", err)
	}
}

func TestSliceSlicesSharedCoordAndItems(t *testing.T) {
	ds := dataset.NewDataset()
	x := dim.Of("x")
	ds.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	ds.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	out, err := ds.Slice(x, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	item, err := out.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := item.Data.Copy().Float64Data()
	if len(data) != 2 || data[0] != 2 {
		t.Fatalf("got %v", data)
	}
}

func TestMergeUnionsDisjointItems(t *testing.T) {
	x := dim.Of("x")
	a := dataset.NewDataset()
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	a.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	b := dataset.NewDataset()
	b.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	b.Set("b", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{4, 5, 6}), dataset.NewNamedVars())

	merged, err := dataset.Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Len() != 2 {
		t.Fatalf("want 2 items, got %d", merged.Len())
	}
}

func TestMergeRejectsCoordDisagreement(t *testing.T) {
	x := dim.Of("x")
	a := dataset.NewDataset()
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	a.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	b := dataset.NewDataset()
	b.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{9, 9, 9}))
	b.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	if _, err := dataset.Merge(a, b); err == nil {
		t.Fatal("expected CoordMismatchError for disagreeing shared coords")
	}
}

func TestMergeRejectsItemNameCollisionWithDifferingData(t *testing.T) {
	x := dim.Of("x")
	a := dataset.NewDataset()
	a.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	a.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{1, 2, 3}), dataset.NewNamedVars())

	b := dataset.NewDataset()
	b.Coords.Set(x, mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Meter, []float64{0, 1, 2}))
	b.Set("a", mustFloat64(t, dims(t, []string{"x"}, []int{3}), unit.Counts, []float64{7, 8, 9}), dataset.NewNamedVars())

	if _, err := dataset.Merge(a, b); err == nil {
		t.Fatal("expected error for colliding item name with differing data")
	}
}
