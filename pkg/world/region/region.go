// Package region assembles generated blocks and biomes into regions, the
// cubic unit of terrain handed to storage and transport.
package region

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
	"github.com/OCharnyshevich/worldgen/pkg/world/coord"
	"github.com/OCharnyshevich/worldgen/pkg/world/density"
)

// Pos identifies a region in region units.
type Pos struct {
	X, Y, Z int
}

func (p Pos) String() string {
	return fmt.Sprintf("region(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Origin is the world position of the region's lowest corner.
func (p Pos) Origin(dim int) coord.Pos {
	return coord.Pos{X: p.X, Y: p.Y, Z: p.Z}.Scale(dim)
}

// Region is a finished cube of terrain. It is not modified after Assemble
// returns.
type Region struct {
	// Seed is the world seed the region was generated with.
	Seed int64
	Pos  Pos
	Dim  int
	// Blocks is indexed by density.Index.
	Blocks []block.ID
	// Biomes holds one biome per column, indexed z*Dim+x.
	Biomes []biome.ID
}

// Assemble wraps a density buffer and the biome grid it was generated from.
// grid must cover the region's columns.
func Assemble(pos Pos, dim int, blocks []block.ID, grid *biomegrid.Grid) (*Region, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("region dim %d must be positive", dim)
	}
	if len(blocks) != dim*dim*dim {
		return nil, fmt.Errorf("region %s: %d blocks, want %d", pos, len(blocks), dim*dim*dim)
	}
	origin := pos.Origin(dim)
	cols, err := grid.Crop(biomegrid.Rect{X: origin.X, Z: origin.Z, Width: dim, Height: dim})
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", pos, err)
	}
	biomes := cols.Cells
	if cols == grid {
		biomes = append([]biome.ID(nil), grid.Cells...)
	}
	return &Region{Pos: pos, Dim: dim, Blocks: blocks, Biomes: biomes}, nil
}

// Origin is the world position of the region's lowest corner.
func (r *Region) Origin() coord.Pos { return r.Pos.Origin(r.Dim) }

// Block returns the block at local (x, y, z).
func (r *Region) Block(x, y, z int) block.ID {
	return r.Blocks[density.Index(r.Dim, x, y, z)]
}

// Biome returns the biome of local column (x, z).
func (r *Region) Biome(x, z int) biome.ID {
	return r.Biomes[z*r.Dim+x]
}

// Digest is a content hash over the region's seed, position, size, blocks
// and biomes. Two regions with the same digest are treated as identical.
func (r *Region) Digest() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range []int64{r.Seed, int64(r.Pos.X), int64(r.Pos.Y), int64(r.Pos.Z), int64(r.Dim)} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	blocks := make([]byte, 2*len(r.Blocks))
	for i, b := range r.Blocks {
		binary.LittleEndian.PutUint16(blocks[2*i:], uint16(b))
	}
	d.Write(blocks)
	biomes := make([]byte, len(r.Biomes))
	for i, b := range r.Biomes {
		biomes[i] = byte(b)
	}
	d.Write(biomes)
	return d.Sum64()
}

// Diff counts the voxels and columns that differ between a and b. Regions
// of different seed, size or position differ everywhere.
func Diff(a, b *Region) int {
	if a.Seed != b.Seed || a.Pos != b.Pos || a.Dim != b.Dim || len(a.Blocks) != len(b.Blocks) || len(a.Biomes) != len(b.Biomes) {
		return max(len(a.Blocks), len(b.Blocks)) + max(len(a.Biomes), len(b.Biomes))
	}
	n := 0
	for i := range a.Blocks {
		if a.Blocks[i] != b.Blocks[i] {
			n++
		}
	}
	for i := range a.Biomes {
		if a.Biomes[i] != b.Biomes[i] {
			n++
		}
	}
	return n
}
