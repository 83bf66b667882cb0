package sim

// Pairing heap keyed on next-event time, after Fredman, Sedgewick,
// Sleator and Tarjan (1986). Nodes live in a fixed arena; handles are
// arena indices so models can hold them across merges without pointer
// pinning. prev points at the parent when the node is a first child and
// at the left sibling otherwise.

type handle = int32

const nilHandle handle = -1

type heapNode struct {
	tn    Time
	id    ModelID
	prev  handle
	next  handle
	child handle
}

type pairingHeap struct {
	nodes    []heapNode
	size     int
	maxUsed  int
	root     handle
	freeList handle
}

func (h *pairingHeap) init(capacity int) error {
	if capacity <= 0 {
		return ErrArenaCapacity
	}
	h.nodes = make([]heapNode, capacity)
	h.clear()
	return nil
}

func (h *pairingHeap) clear() {
	h.size = 0
	h.maxUsed = 0
	h.root = nilHandle
	h.freeList = nilHandle
}

// alloc claims a node, keys it and merges it with the root.
func (h *pairingHeap) alloc(tn Time, id ModelID) handle {
	var n handle
	if h.freeList != nilHandle {
		n = h.freeList
		h.freeList = h.nodes[n].next
	} else {
		n = handle(h.maxUsed)
		h.maxUsed++
	}

	h.nodes[n] = heapNode{tn: tn, id: id, prev: nilHandle, next: nilHandle, child: nilHandle}
	h.insert(n)
	return n
}

// destroy returns a detached node to the free list.
func (h *pairingHeap) destroy(n handle) {
	if h.size == 0 {
		h.clear()
		return
	}
	h.nodes[n].prev = nilHandle
	h.nodes[n].child = nilHandle
	h.nodes[n].id = 0
	h.nodes[n].next = h.freeList
	h.freeList = n
}

// insert re-links a detached node (fresh or previously popped) into the
// heap under its current tn.
func (h *pairingHeap) insert(n handle) {
	h.nodes[n].prev = nilHandle
	h.nodes[n].next = nilHandle
	h.nodes[n].child = nilHandle

	h.size++

	if h.root == nilHandle {
		h.root = n
	} else {
		h.root = h.merge(n, h.root)
	}
}

// remove detaches n wherever it sits, keeping its subheap merged in.
func (h *pairingHeap) remove(n handle) {
	if n == h.root {
		h.pop()
		return
	}

	h.size--
	h.detachSubheap(n)

	if h.nodes[n].child != nilHandle {
		m := h.mergeSubheaps(n)
		h.root = h.merge(h.root, m)
	}
	h.nodes[n].child = nilHandle
	h.nodes[n].prev = nilHandle
	h.nodes[n].next = nilHandle
}

// pop detaches the root and rebuilds it by a multi-pass merge of the
// root's children.
func (h *pairingHeap) pop() handle {
	h.size--

	top := h.root
	if h.nodes[top].child == nilHandle {
		h.root = nilHandle
	} else {
		h.root = h.mergeSubheaps(top)
	}

	h.nodes[top].child = nilHandle
	h.nodes[top].next = nilHandle
	h.nodes[top].prev = nilHandle

	return top
}

// decrease restores heap order after n's tn moved down.
func (h *pairingHeap) decrease(n handle) {
	if h.nodes[n].prev == nilHandle {
		return
	}
	h.detachSubheap(n)
	h.root = h.merge(h.root, n)
}

// increase restores heap order after n's tn moved up.
func (h *pairingHeap) increase(n handle) {
	h.remove(n)
	h.insert(n)
}

func (h *pairingHeap) empty() bool { return h.root == nilHandle }

func (h *pairingHeap) top() handle { return h.root }

func (h *pairingHeap) merge(a, b handle) handle {
	na, nb := &h.nodes[a], &h.nodes[b]

	if na.tn < nb.tn {
		if na.child != nilHandle {
			h.nodes[na.child].prev = b
		}
		if nb.next != nilHandle {
			h.nodes[nb.next].prev = a
		}
		na.next = nb.next
		nb.next = na.child
		na.child = b
		nb.prev = a
		return a
	}

	if nb.child != nilHandle {
		h.nodes[nb.child].prev = a
	}
	if na.prev != nilHandle && h.nodes[na.prev].child != a {
		h.nodes[na.prev].next = b
	}
	nb.prev = na.prev
	na.prev = b
	na.next = nb.child
	nb.child = a
	return b
}

func (h *pairingHeap) mergeRight(a handle) handle {
	b := nilHandle
	for a != nilHandle {
		b = h.nodes[a].next
		if b == nilHandle {
			return a
		}
		b = h.merge(a, b)
		a = h.nodes[b].next
	}
	return b
}

func (h *pairingHeap) mergeLeft(a handle) handle {
	for b := h.nodes[a].prev; b != nilHandle; b = h.nodes[a].prev {
		a = h.merge(b, a)
	}
	return a
}

func (h *pairingHeap) mergeSubheaps(a handle) handle {
	child := h.nodes[a].child
	h.nodes[child].prev = nilHandle
	return h.mergeLeft(h.mergeRight(child))
}

func (h *pairingHeap) detachSubheap(n handle) {
	prev := h.nodes[n].prev
	if h.nodes[prev].child == n {
		h.nodes[prev].child = h.nodes[n].next
	} else {
		h.nodes[prev].next = h.nodes[n].next
	}
	if h.nodes[n].next != nilHandle {
		h.nodes[h.nodes[n].next].prev = prev
	}
	h.nodes[n].prev = nilHandle
	h.nodes[n].next = nilHandle
}
