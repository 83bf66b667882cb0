package sim

import "testing"

type payload struct {
	n int
}

type payloadID = ModelID

func TestDataArray_AllocFreeReuse(t *testing.T) {
	// GIVEN an arena of capacity 4
	var arr DataArray[payload, payloadID]
	if err := arr.Init(4); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// WHEN three items are allocated
	idA, a := arr.Alloc()
	idB, b := arr.Alloc()
	idC, _ := arr.Alloc()
	a.n, b.n = 1, 2

	// THEN all resolve and size reflects them
	if arr.Size() != 3 {
		t.Fatalf("Size: got %d, want 3", arr.Size())
	}
	if got := arr.TryToGet(idA); got == nil || got.n != 1 {
		t.Errorf("TryToGet(A): got %v", got)
	}

	// WHEN the middle item is freed and a new one allocated
	arr.Free(idB)
	idD, _ := arr.Alloc()

	// THEN the freed slot is reused with a fresh generation
	if indexOf(idD) != indexOf(idB) {
		t.Errorf("slot reuse: got index %d, want %d", indexOf(idD), indexOf(idB))
	}
	if keyOf(idD) == keyOf(idB) {
		t.Errorf("generation not bumped on reuse")
	}

	// AND the stale identifier no longer resolves
	if arr.TryToGet(idB) != nil {
		t.Errorf("stale id resolved after free")
	}
	if arr.TryToGet(idC) == nil {
		t.Errorf("live id failed to resolve")
	}
}

func TestDataArray_TryToGetUndefined(t *testing.T) {
	var arr DataArray[payload, payloadID]
	if err := arr.Init(2); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A zero-key identifier is "undefined" and never resolves.
	if arr.TryToGet(0) != nil {
		t.Errorf("undefined id resolved")
	}
}

func TestDataArray_IterationSkipsFreed(t *testing.T) {
	// GIVEN five items with the second and fourth freed
	var arr DataArray[payload, payloadID]
	if err := arr.Init(8); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ids := make([]payloadID, 5)
	for i := range ids {
		id, v := arr.Alloc()
		v.n = i
		ids[i] = id
	}
	arr.Free(ids[1])
	arr.Free(ids[3])

	// WHEN iterating
	var got []int
	var it uint32
	for v, _, ok := arr.Next(&it); ok; v, _, ok = arr.Next(&it) {
		got = append(got, v.n)
	}

	// THEN only live items appear, in slot order
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("iteration: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("iteration[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDataArray_FullAndCanAlloc(t *testing.T) {
	var arr DataArray[payload, payloadID]
	if err := arr.Init(2); err != nil {
		t.Fatalf("Init: %v", err)
	}

	arr.Alloc()
	arr.Alloc()

	if !arr.Full() {
		t.Errorf("Full: got false on exhausted arena")
	}
	if _, _, ok := arr.TryAlloc(); ok {
		t.Errorf("TryAlloc succeeded on full arena")
	}
}

func TestDataArray_ClearResetsGenerations(t *testing.T) {
	var arr DataArray[payload, payloadID]
	if err := arr.Init(4); err != nil {
		t.Fatalf("Init: %v", err)
	}

	id, _ := arr.Alloc()
	arr.Clear()

	if arr.Size() != 0 {
		t.Errorf("Size after Clear: got %d", arr.Size())
	}
	if arr.TryToGet(id) != nil {
		t.Errorf("pre-Clear id resolved after Clear")
	}
}

func TestDataArray_InitRejectsBadCapacity(t *testing.T) {
	var arr DataArray[payload, payloadID]
	if err := arr.Init(0); err != ErrArenaCapacity {
		t.Errorf("Init(0): got %v, want ErrArenaCapacity", err)
	}
}
