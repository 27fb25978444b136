package region

import (
	"fmt"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
	"github.com/OCharnyshevich/worldgen/pkg/world/chunk"
	"github.com/OCharnyshevich/worldgen/pkg/world/density"
)

// Chunk is one palette chunk of a region.
type Chunk struct {
	Pos  chunk.Pos
	Data *chunk.Chunk
}

// Chunks splits the region into chunk.Dim cubes, ordered by X, then Y,
// then Z. The region's side must be a multiple of chunk.Dim.
func (r *Region) Chunks() ([]Chunk, error) {
	if r.Dim%chunk.Dim != 0 {
		return nil, fmt.Errorf("region dim %d is not a multiple of %d", r.Dim, chunk.Dim)
	}
	n := r.Dim / chunk.Dim
	out := make([]Chunk, 0, n*n*n)
	for cx := 0; cx < n; cx++ {
		for cy := 0; cy < n; cy++ {
			for cz := 0; cz < n; cz++ {
				c := chunk.New()
				for x := 0; x < chunk.Dim; x++ {
					for z := 0; z < chunk.Dim; z++ {
						base := density.Index(r.Dim, cx*chunk.Dim+x, cy*chunk.Dim, cz*chunk.Dim+z)
						for y, b := range r.Blocks[base : base+chunk.Dim] {
							if b != block.Air {
								c.Set(x, y, z, b)
							}
						}
					}
				}
				out = append(out, Chunk{Pos: chunk.Pos{X: cx, Y: cy, Z: cz}, Data: c})
			}
		}
	}
	return out, nil
}

// FromChunks rebuilds a region of world seed from its chunks and column
// biomes. Chunks that are missing are air.
func FromChunks(seed int64, pos Pos, dim int, chunks []Chunk, biomes []biome.ID) (*Region, error) {
	if dim <= 0 || dim%chunk.Dim != 0 {
		return nil, fmt.Errorf("region dim %d is not a positive multiple of %d", dim, chunk.Dim)
	}
	if len(biomes) != dim*dim {
		return nil, fmt.Errorf("region %s: %d biome columns, want %d", pos, len(biomes), dim*dim)
	}
	n := dim / chunk.Dim
	r := &Region{Seed: seed, Pos: pos, Dim: dim, Blocks: make([]block.ID, dim*dim*dim), Biomes: biomes}
	for _, c := range chunks {
		p := c.Pos
		if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= n || p.Y >= n || p.Z >= n {
			return nil, fmt.Errorf("region %s: %s outside %d chunks per side", pos, p, n)
		}
		for x := 0; x < chunk.Dim; x++ {
			for z := 0; z < chunk.Dim; z++ {
				base := density.Index(dim, p.X*chunk.Dim+x, p.Y*chunk.Dim, p.Z*chunk.Dim+z)
				for y := 0; y < chunk.Dim; y++ {
					r.Blocks[base+y] = c.Data.Get(x, y, z)
				}
			}
		}
	}
	return r, nil
}
