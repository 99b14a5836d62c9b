package bitset

import "math/bits"

const (
	addressBitsPerWord uint = 6
	bitIndexMask       uint = 1<<addressBitsPerWord - 1
)

// BitSet is a growable set of non-negative integers.
type BitSet struct {
	words      []uint64
	wordsInUse uint
}

// New creates a set with room for size bits. The set grows on demand.
func New(size uint) *BitSet {
	return &BitSet{
		words: make([]uint64, wordIndex(size)+1),
	}
}

func (bs *BitSet) Test(idx uint) bool {
	wordIdx := wordIndex(idx)
	if wordIdx >= bs.wordsInUse {
		return false
	}
	return bs.words[wordIdx]&(uint64(1)<<(idx&bitIndexMask)) != 0
}

func (bs *BitSet) Set(idx uint) {
	wordIdx := wordIndex(idx)
	bs.expandTo(wordIdx)
	bs.words[wordIdx] |= uint64(1) << (idx & bitIndexMask)
}

// TestAndSet sets the bit and returns its previous state.
func (bs *BitSet) TestAndSet(idx uint) bool {
	ret := bs.Test(idx)
	if !ret {
		bs.Set(idx)
	}
	return ret
}

func (bs *BitSet) Clear(idx uint) {
	wordIdx := wordIndex(idx)
	if wordIdx >= bs.wordsInUse {
		return
	}
	bs.words[wordIdx] &= ^(uint64(1) << (idx & bitIndexMask))
	bs.recalculateWordsInUse()
}

// Count returns the number of set bits.
func (bs *BitSet) Count() int {
	var ret int
	for i := uint(0); i < bs.wordsInUse; i++ {
		ret += bits.OnesCount64(bs.words[i])
	}
	return ret
}

// NextClear returns the first unset bit at or after idx.
func (bs *BitSet) NextClear(idx uint) uint {
	for bs.Test(idx) {
		idx++
	}
	return idx
}

func (bs *BitSet) Equals(other *BitSet) bool {
	if bs.wordsInUse != other.wordsInUse {
		return false
	}
	for i := uint(0); i < bs.wordsInUse; i++ {
		if bs.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

func (bs *BitSet) expandTo(wordIdx uint) {
	wordsRequired := wordIdx + 1
	if bs.wordsInUse < wordsRequired {
		bs.ensureCapacity(wordsRequired)
		bs.wordsInUse = wordsRequired
	}
}

func (bs *BitSet) ensureCapacity(wordsRequired uint) {
	if len(bs.words) < int(wordsRequired) {
		tmp := make([]uint64, max(wordsRequired, uint(len(bs.words))*2))
		copy(tmp, bs.words)
		bs.words = tmp
	}
}

func (bs *BitSet) recalculateWordsInUse() {
	var i int
	for i = int(bs.wordsInUse) - 1; i >= 0; i-- {
		if bs.words[i] != 0 {
			break
		}
	}
	bs.wordsInUse = uint(i) + 1
}

func wordIndex(bitIndex uint) uint {
	return bitIndex >> addressBitsPerWord
}
