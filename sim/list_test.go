package sim

import "testing"

func newMessageArena(t *testing.T, capacity int) *blockAllocator[Message] {
	t.Helper()
	var a blockAllocator[Message]
	if err := a.init(capacity); err != nil {
		t.Fatalf("init: %v", err)
	}
	return &a
}

func listValues(l listView[Message]) []float64 {
	var out []float64
	for it := l.begin(); it != noIndex; it = l.next(it) {
		out = append(out, l.at(it)[0])
	}
	return out
}

func assertOrder(t *testing.T, l listView[Message], want []float64) {
	t.Helper()
	got := listValues(l)
	if len(got) != len(want) {
		t.Fatalf("list order: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list order: got %v, want %v", got, want)
		}
	}
}

func TestListView_PushPopBothEnds(t *testing.T) {
	a := newMessageArena(t, 16)
	word := EmptyList
	l := viewList(a, &word)

	// GIVEN pushes on both ends
	l.pushBack(Message{2})
	l.pushFront(Message{1})
	l.pushBack(Message{3})
	assertOrder(t, l, []float64{1, 2, 3})

	// WHEN popping each end
	l.popFront()
	l.popBack()

	// THEN the middle element remains
	assertOrder(t, l, []float64{2})
	if l.front()[0] != 2 || l.back()[0] != 2 {
		t.Errorf("front/back: got %v/%v, want 2/2", l.front()[0], l.back()[0])
	}

	// AND popping the last element empties the list word
	l.popFront()
	if word != EmptyList {
		t.Errorf("word after last pop: got %#x, want EmptyList", uint64(word))
	}
}

func TestListView_EraseMiddleReturnsNext(t *testing.T) {
	a := newMessageArena(t, 16)
	word := EmptyList
	l := viewList(a, &word)

	l.pushBack(Message{1})
	l.pushBack(Message{2})
	l.pushBack(Message{3})

	// WHEN erasing the middle node
	it := l.next(l.begin())
	next := l.erase(it)

	// THEN the iterator after it is returned and order holds
	if l.at(next)[0] != 3 {
		t.Errorf("erase: next points at %v, want 3", l.at(next)[0])
	}
	assertOrder(t, l, []float64{1, 3})
}

func TestListView_InsertBeforeKeepsOrder(t *testing.T) {
	a := newMessageArena(t, 16)
	word := EmptyList
	l := viewList(a, &word)

	l.pushBack(Message{1})
	l.pushBack(Message{3})

	// Insert before the tail, before the head, and at end().
	l.insertBefore(l.rbegin(), Message{2})
	l.insertBefore(l.begin(), Message{0})
	l.insertBefore(noIndex, Message{4})

	assertOrder(t, l, []float64{0, 1, 2, 3, 4})
}

func TestListView_ClearReleasesNodes(t *testing.T) {
	a := newMessageArena(t, 4)
	word := EmptyList
	l := viewList(a, &word)

	l.pushBack(Message{1})
	l.pushBack(Message{2})
	l.pushBack(Message{3})
	l.pushBack(Message{4})

	if a.canAlloc(1) {
		t.Fatalf("arena should be exhausted")
	}

	// WHEN clearing
	l.clear()

	// THEN every node is reusable again
	if !a.canAlloc(4) {
		t.Errorf("clear did not release nodes")
	}
	if word != EmptyList {
		t.Errorf("word after clear: got %#x", uint64(word))
	}

	// AND a second list can use all of them
	word2 := EmptyList
	l2 := viewList(a, &word2)
	for i := 0; i < 4; i++ {
		l2.pushBack(Message{float64(i)})
	}
	assertOrder(t, l2, []float64{0, 1, 2, 3})
}

func TestListView_TwoListsShareArena(t *testing.T) {
	a := newMessageArena(t, 8)
	wordA, wordB := EmptyList, EmptyList
	la := viewList(a, &wordA)
	lb := viewList(a, &wordB)

	la.pushBack(Message{1})
	lb.pushBack(Message{10})
	la.pushBack(Message{2})
	lb.pushFront(Message{9})

	assertOrder(t, la, []float64{1, 2})
	assertOrder(t, lb, []float64{9, 10})
}
