package buffer_test

import (
	"testing"

	"github.com/nscipp/nscipp/buffer"
)

func TestShareAndCOW(t *testing.T) {
	b := buffer.FromSlice([]float64{1, 2, 3})
	shared := b.TypedShare()

	if b.Identity() != shared.Identity() {
		t.Fatal("Share should alias the same backing storage")
	}

	w := shared.TypedEnsureUnique()
	if w.Identity() == b.Identity() {
		t.Fatal("EnsureUnique on a shared buffer should copy")
	}
	w.Data()[0] = 99
	if b.Data()[0] == 99 {
		t.Fatal("mutating the COW copy affected the original")
	}

	// After EnsureUnique dropped shared's sharer count back to one
	// sharer (just b), b itself may now mutate in place.
	solo := b.TypedEnsureUnique()
	if solo.Identity() != b.Identity() {
		t.Fatal("EnsureUnique on a uniquely-owned buffer should not copy")
	}
}

func TestClone(t *testing.T) {
	b := buffer.FromSlice([]float64{1, 2, 3})
	c := b.TypedClone()
	if c.Identity() == b.Identity() {
		t.Fatal("Clone must produce independent storage")
	}
	c.Data()[0] = 42
	if b.Data()[0] == 42 {
		t.Fatal("clone is not independent")
	}
}

func TestOverlaps(t *testing.T) {
	b := buffer.FromSlice([]float64{1, 2, 3, 4, 5})
	shared := b.TypedShare()

	if !buffer.Overlaps(b, shared, 0, 3, 2, 5) {
		t.Fatal("expected overlap [0,3) vs [2,5) on aliased storage")
	}
	if buffer.Overlaps(b, shared, 0, 2, 2, 5) {
		t.Fatal("did not expect overlap for disjoint ranges")
	}

	other := buffer.FromSlice([]float64{1, 2, 3, 4, 5})
	if buffer.Overlaps(b, other, 0, 5, 0, 5) {
		t.Fatal("distinct buffers must never report overlap")
	}
}

func TestEmptyBufferNeverOverlaps(t *testing.T) {
	a := buffer.FromSlice([]float64{})
	b := buffer.FromSlice([]float64{})
	if buffer.Overlaps(a, b, 0, 0, 0, 0) {
		t.Fatal("empty buffers must never report overlap")
	}
}
