package dimensions_test

import (
	"testing"

	"github.com/nscipp/nscipp/dim"
	"github.com/nscipp/nscipp/dimensions"
)

func dims(t *testing.T, pairs ...any) dimensions.Dimensions {
	t.Helper()
	var d dimensions.Dimensions
	for i := 0; i < len(pairs); i += 2 {
		label := dim.Of(pairs[i].(string))
		ext := pairs[i+1].(int)
		if err := d.Push(label, ext); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	return d
}

func TestPushOrderAndVolume(t *testing.T) {
	d := dims(t, "x", 2, "y", 3)
	if d.Rank() != 2 {
		t.Fatalf("Rank() = %d, want 2", d.Rank())
	}
	if got, want := d.Volume(), 6; got != want {
		t.Fatalf("Volume() = %d, want %d", got, want)
	}
	if got := d.Labels(); got[0] != dim.Of("x") || got[1] != dim.Of("y") {
		t.Fatalf("Labels() order wrong: %v", got)
	}
}

func TestEmptyVolumeIsOne(t *testing.T) {
	var d dimensions.Dimensions
	if got := d.Volume(); got != 1 {
		t.Fatalf("empty Volume() = %d, want 1", got)
	}
}

func TestDuplicatePushFails(t *testing.T) {
	var d dimensions.Dimensions
	if err := d.Push(dim.Of("dup-x"), 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Push(dim.Of("dup-x"), 3); err == nil {
		t.Fatal("expected error pushing duplicate dim")
	}
}

func TestSparseRejected(t *testing.T) {
	var d dimensions.Dimensions
	if err := d.Push(dim.Of("sparse-d"), dimensions.Sparse); err == nil {
		t.Fatal("expected NotImplementedError for Sparse extent")
	}
}

func TestIncludesForBroadcast(t *testing.T) {
	small := dims(t, "y", 3)
	big := dims(t, "x", 2, "y", 3)
	if !big.Includes(small) {
		t.Fatal("big should include small")
	}
	if big.Includes(dims(t, "y", 4)) {
		t.Fatal("mismatched extent should not be included")
	}
	if !small.BroadcastableTo(big) {
		t.Fatal("small should be broadcastable to big")
	}
}

func TestRename(t *testing.T) {
	d := dims(t, "ren-a", 2, "ren-b", 3)
	if err := d.Rename(dim.Of("ren-a"), dim.Of("ren-c")); err != nil {
		t.Fatal(err)
	}
	if !d.Contains(dim.Of("ren-c")) || d.Contains(dim.Of("ren-a")) {
		t.Fatal("rename did not take effect")
	}
}

func TestRenameConflict(t *testing.T) {
	d := dims(t, "rc-a", 2, "rc-b", 3)
	if err := d.Rename(dim.Of("rc-a"), dim.Of("rc-b")); err == nil {
		t.Fatal("expected error renaming onto existing dim")
	}
}

func TestPermute(t *testing.T) {
	d := dims(t, "perm-x", 2, "perm-y", 3, "perm-z", 4)
	out, err := d.Permute([]dim.Dim{dim.Of("perm-z"), dim.Of("perm-x"), dim.Of("perm-y")})
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape()[0] != 4 || out.Shape()[1] != 2 || out.Shape()[2] != 3 {
		t.Fatalf("Permute shape = %v", out.Shape())
	}
}

func TestUnionOrderPreserved(t *testing.T) {
	a := dims(t, "un-x", 2, "un-y", 3)
	b := dims(t, "un-y", 3, "un-z", 4)
	u, err := dimensions.Union(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []dim.Dim{dim.Of("un-x"), dim.Of("un-y"), dim.Of("un-z")}
	got := u.Labels()
	if len(got) != len(want) {
		t.Fatalf("Union labels = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Union labels[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUnionConflict(t *testing.T) {
	a := dims(t, "uc-x", 2)
	b := dims(t, "uc-x", 3)
	if _, err := dimensions.Union(a, b); err == nil {
		t.Fatal("expected conflicting-extent error")
	}
}
