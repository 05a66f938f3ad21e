// Package collections provides compact data structures for vertex sets.
package collections

import "math/bits"

// Bitset is a fixed-size set of vertex ids using one bit per id.
type Bitset struct {
	bits []uint64
	size uint64
}

// NewBitset creates an empty bitset for ids in [0, size).
func NewBitset(size uint64) *Bitset {
	return &Bitset{
		bits: make([]uint64, (size+63)/64),
		size: size,
	}
}

// Set adds i. Ids outside the range are ignored.
func (b *Bitset) Set(i uint64) {
	if i >= b.size {
		return
	}
	b.bits[i/64] |= 1 << (i % 64)
}

// Clear removes i.
func (b *Bitset) Clear(i uint64) {
	if i >= b.size {
		return
	}
	b.bits[i/64] &^= 1 << (i % 64)
}

// Test reports whether i is in the set.
func (b *Bitset) Test(i uint64) bool {
	if i >= b.size {
		return false
	}
	return b.bits[i/64]&(1<<(i%64)) != 0
}

// ClearAll empties the set.
func (b *Bitset) ClearAll() {
	clear(b.bits)
}

// Count returns the number of members.
func (b *Bitset) Count() uint64 {
	var count int
	for _, word := range b.bits {
		count += bits.OnesCount64(word)
	}
	return uint64(count)
}

// Size returns the id range of the bitset.
func (b *Bitset) Size() uint64 {
	return b.size
}

// Iterate calls fn for each member in ascending order until fn returns false.
func (b *Bitset) Iterate(fn func(i uint64) bool) {
	for wordIdx, word := range b.bits {
		base := uint64(wordIdx) * 64
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			if !fn(base + uint64(tz)) {
				return
			}
			word &= word - 1
		}
	}
}
