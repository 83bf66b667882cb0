package sim

// noIndex marks an empty free list or an unset slot index.
const noIndex = ^uint32(0)

type dataItem[T any, ID ident] struct {
	value T
	id    ID
}

// DataArray is a generational slot arena: O(1) allocate and free with
// stable identifiers. Freed slots go on an intrusive free list (the slot's
// id field stores the next free index while its key is zero); reusing a
// slot bumps the generation key so stale identifiers fail TryToGet.
type DataArray[T any, ID ident] struct {
	items    []dataItem[T, ID]
	size     uint32
	maxUsed  uint32 // highest index ever allocated; bounds iteration
	nextKey  uint32 // 1..2^32-1, zero reserved for "undefined"
	freeHead uint32
}

// Init allocates storage for capacity items and resets all bookkeeping.
func (d *DataArray[T, ID]) Init(capacity int) error {
	if capacity <= 0 || uint64(capacity) > uint64(noIndex) {
		return ErrArenaCapacity
	}

	d.items = make([]dataItem[T, ID], capacity)
	d.size = 0
	d.maxUsed = 0
	d.nextKey = 1
	d.freeHead = noIndex

	return nil
}

// Alloc claims a slot and returns its identifier together with a pointer
// to the zeroed value. Callers must check CanAlloc first; Alloc panics on
// a full arena.
func (d *DataArray[T, ID]) Alloc() (ID, *T) {
	if !d.CanAlloc(1) {
		panic("DataArray.Alloc: arena full, check CanAlloc first")
	}

	var index uint32
	if d.freeHead != noIndex {
		index = d.freeHead
		d.freeHead = indexOf(d.items[index].id)
	} else {
		index = d.maxUsed
		d.maxUsed++
	}

	var zero T
	d.items[index].value = zero
	d.items[index].id = makeID[ID](d.nextKey, index)
	d.nextKey = nextKey(d.nextKey)
	d.size++

	return d.items[index].id, &d.items[index].value
}

// TryAlloc is Alloc that reports failure instead of panicking.
func (d *DataArray[T, ID]) TryAlloc() (ID, *T, bool) {
	if !d.CanAlloc(1) {
		return 0, nil, false
	}
	id, v := d.Alloc()
	return id, v, true
}

// Free releases the slot behind id and pushes it onto the free list. The
// slot's id is overwritten with the encoded next free index (zero key),
// so any outstanding copy of id becomes stale.
func (d *DataArray[T, ID]) Free(id ID) {
	index := indexOf(id)
	if index >= d.maxUsed || d.items[index].id != id {
		return
	}

	var zero T
	d.items[index].value = zero
	d.items[index].id = ID(uint64(d.freeHead))
	d.freeHead = index
	d.size--
}

// TryToGet resolves id to its value, or nil when the identifier is
// undefined, freed, or stale.
func (d *DataArray[T, ID]) TryToGet(id ID) *T {
	if keyOf(id) == 0 {
		return nil
	}
	index := indexOf(id)
	if index >= d.maxUsed || d.items[index].id != id {
		return nil
	}
	return &d.items[index].value
}

// Get resolves id without validation. Reserved for callers that hold a
// known-live identifier.
func (d *DataArray[T, ID]) Get(id ID) *T {
	return &d.items[indexOf(id)].value
}

// Next advances *it over live entries in slot order. Start iteration with
// *it == 0; each call returns the next live value and its id, or ok=false
// when the arena is exhausted.
//
//	var it uint32
//	for v, id, ok := arr.Next(&it); ok; v, id, ok = arr.Next(&it) { ... }
func (d *DataArray[T, ID]) Next(it *uint32) (*T, ID, bool) {
	for ; *it < d.maxUsed; *it++ {
		if keyOf(d.items[*it].id) != 0 {
			item := &d.items[*it]
			*it++
			return &item.value, item.id, true
		}
	}
	return nil, 0, false
}

// Clear frees every live item and resets generation state.
func (d *DataArray[T, ID]) Clear() {
	var zero T
	for i := uint32(0); i < d.maxUsed; i++ {
		d.items[i].value = zero
		d.items[i].id = 0
	}
	d.size = 0
	d.maxUsed = 0
	d.nextKey = 1
	d.freeHead = noIndex
}

// CanAlloc reports whether n more items fit.
func (d *DataArray[T, ID]) CanAlloc(n int) bool {
	return uint64(len(d.items))-uint64(d.size) >= uint64(n)
}

// Full reports whether no slot is available.
func (d *DataArray[T, ID]) Full() bool { return !d.CanAlloc(1) }

// Size returns the number of live items.
func (d *DataArray[T, ID]) Size() int { return int(d.size) }

// Capacity returns the total slot count.
func (d *DataArray[T, ID]) Capacity() int { return len(d.items) }
