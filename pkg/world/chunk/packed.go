package chunk

import "fmt"

// PackedArray stores length unsigned integers of a fixed bit width in
// 64-bit words. Values never straddle two words.
type PackedArray struct {
	length int
	bits   int
	words  []uint64
}

// NewPackedArray returns a zeroed array. bits must be in [1, 64].
func NewPackedArray(length, bits int) *PackedArray {
	if bits < 1 || bits > 64 {
		panic(fmt.Sprintf("chunk: %d bits per value out of range", bits))
	}
	p := &PackedArray{length: length, bits: bits}
	per := p.perWord()
	p.words = make([]uint64, (length+per-1)/per)
	return p
}

// Len returns the number of values.
func (p *PackedArray) Len() int { return p.length }

// BitsPerValue returns the width of one value.
func (p *PackedArray) BitsPerValue() int { return p.bits }

// MaxValue is the largest value that fits.
func (p *PackedArray) MaxValue() uint64 { return p.mask() }

// Words exposes the backing words.
func (p *PackedArray) Words() []uint64 { return p.words }

// Get returns the value at i. It panics if i is out of range.
func (p *PackedArray) Get(i int) uint64 {
	p.check(i)
	w, off := p.locate(i)
	return (p.words[w] >> off) & p.mask()
}

// Set stores v at i. It panics if i is out of range or v does not fit.
func (p *PackedArray) Set(i int, v uint64) {
	p.check(i)
	mask := p.mask()
	if v > mask {
		panic(fmt.Sprintf("chunk: value %d does not fit in %d bits", v, p.bits))
	}
	w, off := p.locate(i)
	p.words[w] = p.words[w]&^(mask<<off) | v<<off
}

// Resized returns a copy holding the same values at a new width.
func (p *PackedArray) Resized(bits int) *PackedArray {
	out := NewPackedArray(p.length, bits)
	for i := 0; i < p.length; i++ {
		out.Set(i, p.Get(i))
	}
	return out
}

func (p *PackedArray) check(i int) {
	if i < 0 || i >= p.length {
		panic(fmt.Sprintf("chunk: index %d out of range [0,%d)", i, p.length))
	}
}

func (p *PackedArray) mask() uint64 {
	if p.bits == 64 {
		return ^uint64(0)
	}
	return 1<<p.bits - 1
}

func (p *PackedArray) perWord() int { return 64 / p.bits }

func (p *PackedArray) locate(i int) (word int, offset uint) {
	per := p.perWord()
	return i / per, uint(i%per*p.bits)
}
