package sim

import "math"

// Time is the simulation time scale. Plus and minus infinity are
// representable and compared by equality.
type Time = float64

// TimeInfinity is the time of a model that will never fire again.
var TimeInfinity = math.Inf(1)

// ModelID identifies a model slot in the Simulation's model arena.
// The upper 32 bits hold a generation key (zero means undefined), the
// lower 32 bits the slot index. Stale identifiers fail lookups instead
// of aliasing a reused slot.
type ModelID uint64

// ObserverID identifies an observer slot in the observer arena.
type ObserverID uint64

type ident interface {
	~uint64
}

func indexOf[ID ident](id ID) uint32 { return uint32(id) }

func keyOf[ID ident](id ID) uint32 { return uint32(uint64(id) >> 32) }

func makeID[ID ident](key, index uint32) ID {
	return ID(uint64(key)<<32 | uint64(index))
}

// nextKey wraps 0 back to 1: a zero key is reserved for "undefined".
func nextKey(key uint32) uint32 {
	key++
	if key == 0 {
		key = 1
	}
	return key
}

// IsDefined reports whether id refers to an allocated entity (the
// generation key is non-zero). It does not check liveness; use the
// owning arena's TryToGet for that.
func IsDefined[ID ident](id ID) bool { return keyOf(id) != 0 }

// EncodePortNodeID packs a port endpoint into the flat integer node-id
// layout shared with graph front ends: input endpoints use bases 0-7,
// output endpoints 8-15, shifted above the 28-bit model slot index.
func EncodePortNodeID(input bool, portIndex int, slotIndex uint32) uint32 {
	base := uint32(8 + portIndex)
	if input {
		base = uint32(portIndex)
	}
	return base<<28 | slotIndex&0x0FFFFFFF
}

// DecodePortNodeID is the inverse of EncodePortNodeID.
func DecodePortNodeID(nodeID uint32) (input bool, portIndex int, slotIndex uint32) {
	base := nodeID >> 28
	return base < 8, int(base & 7), nodeID & 0x0FFFFFFF
}
