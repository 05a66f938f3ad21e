package dsu

import "math/bits"

// Layout of a packed cell, high to low:
//
//	bit 63      finalized
//	bits 47..62 owner mask, one bit per NUMA node
//	bits 0..46  parent vertex id
const (
	// OwnerBits is the width of the owner mask and thus the node limit.
	OwnerBits = 16

	parentBits = 64 - OwnerBits - 1
	ownerShift = parentBits
	parentMask = uint64(1)<<parentBits - 1
	ownerMask  = uint64(1)<<OwnerBits - 1
	finalBit   = uint64(1) << 63

	// MaxSize is the largest vertex count a table can hold.
	MaxSize = uint64(1)<<(64-OwnerBits-1) - 1
)

// The three fields must tile the word exactly.
var _ = [1]struct{}{}[parentBits+OwnerBits+1-64]

// word is the packed {parent, owners, finalized} value of one replica cell.
type word uint64

func pack(parent uint64, owners uint16, finalized bool) word {
	w := parent&parentMask | uint64(owners)<<ownerShift
	if finalized {
		w |= finalBit
	}
	return word(w)
}

func (w word) parent() uint64 {
	return uint64(w) & parentMask
}

func (w word) owners() uint16 {
	return uint16(uint64(w) >> ownerShift & ownerMask)
}

func (w word) finalized() bool {
	return uint64(w)&finalBit != 0
}

func (w word) isOwner(node int) bool {
	return w.owners()&nodeBit(node) != 0
}

// anyOwner picks a deterministic representative node from a non-empty mask.
func (w word) anyOwner() int {
	return int(anyOwnerTable[w.owners()])
}

func (w word) isRootOf(v uint64) bool {
	return w.parent() == v
}

func (w word) withFinal() word {
	return w | word(finalBit)
}

func nodeBit(node int) uint16 {
	return uint16(1) << uint(node)
}

// anyOwnerTable maps an owner mask to its lowest set node. Mask 0 maps to 0.
var anyOwnerTable = func() (t [1 << OwnerBits]uint8) {
	for m := 1; m < len(t); m++ {
		t[m] = uint8(bits.TrailingZeros16(uint16(m)))
	}
	return t
}()
