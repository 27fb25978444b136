// Package chunk stores 16x16x16 cubes of blocks as a palette of distinct
// blocks plus a bit-packed array of palette indexes. The index width grows
// by one bit whenever the palette outgrows it.
package chunk

import (
	"fmt"

	"github.com/OCharnyshevich/worldgen/pkg/world/block"
)

const (
	// Dim is the side of a chunk in blocks.
	Dim = 16
	// Volume is the number of blocks in a chunk.
	Volume = Dim * Dim * Dim

	initialBits = 3
)

// Pos identifies a chunk inside a region, in units of Dim blocks.
type Pos struct {
	X, Y, Z int
}

func (p Pos) String() string {
	return fmt.Sprintf("chunk(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Chunk is a palette-compressed cube of blocks. The zero value is not
// usable; call New.
type Chunk struct {
	indexes *PackedArray
	palette []block.ID
}

// New returns a chunk filled with air.
func New() *Chunk {
	return &Chunk{
		indexes: NewPackedArray(Volume, initialBits),
		palette: []block.ID{block.Air},
	}
}

// Ordinal is the storage position of (x, y, z): Y slices of Z rows of X.
func Ordinal(x, y, z int) int {
	return y*Dim*Dim + z*Dim + x
}

// Get returns the block at local (x, y, z).
func (c *Chunk) Get(x, y, z int) block.ID {
	checkBounds(x, y, z)
	return c.palette[c.indexes.Get(Ordinal(x, y, z))]
}

// Set stores b at local (x, y, z).
func (c *Chunk) Set(x, y, z int, b block.ID) {
	checkBounds(x, y, z)
	c.indexes.Set(Ordinal(x, y, z), uint64(c.paletteIndex(b)))
}

// Palette returns the distinct blocks ever stored in the chunk, in the
// order they were first seen. Air is always entry 0.
func (c *Chunk) Palette() []block.ID { return c.palette }

// Indexes returns the packed palette indexes in Ordinal order.
func (c *Chunk) Indexes() *PackedArray { return c.indexes }

// Empty reports whether every block is air.
func (c *Chunk) Empty() bool {
	for _, w := range c.indexes.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (c *Chunk) paletteIndex(b block.ID) int {
	for i, p := range c.palette {
		if p == b {
			return i
		}
	}
	c.palette = append(c.palette, b)
	if uint64(len(c.palette)-1) > c.indexes.MaxValue() {
		c.indexes = c.indexes.Resized(c.indexes.BitsPerValue() + 1)
	}
	return len(c.palette) - 1
}

func checkBounds(x, y, z int) {
	if uint(x) >= Dim || uint(y) >= Dim || uint(z) >= Dim {
		panic(fmt.Sprintf("chunk: (%d,%d,%d) out of bounds", x, y, z))
	}
}
