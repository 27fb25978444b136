package density

import (
	"fmt"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
)

// ColumnParams are the blended terrain parameters of one block column.
type ColumnParams struct {
	Frequency float32
	Amplitude float32
	Midpoint  float32
	// Block is the centre biome's block.
	Block block.ID
	// Water is set when the centre biome is water.
	Water bool
	// Replacement is the block used instead of Block at or above sea level
	// in water columns: the block of the nearest non-water sample, or
	// Block when the window holds only water.
	Replacement block.ID
}

// SolidBlock returns the block of a solid voxel at world height y.
func (p ColumnParams) SolidBlock(y int) block.ID {
	if p.Water && y >= SeaLevel {
		return p.Replacement
	}
	return p.Block
}

type sample struct {
	amplitude float32
	midpoint  float32
	frequency float32
	block     block.ID
	water     bool
}

// Blender blends biome parameters over the window of a column.
type Blender struct {
	samples []sample
	kernel  *kernel
}

// NewBlender snapshots the parameters of every biome in cat.
func NewBlender(cat *biome.Catalog) *Blender {
	b := &Blender{samples: make([]sample, cat.Len()), kernel: window}
	for i := range b.samples {
		d := cat.MustLookup(biome.ID(i))
		b.samples[i] = sample{
			amplitude: d.Amplitude,
			midpoint:  d.Midpoint,
			frequency: d.Frequency,
			block:     d.Block,
			water:     d.Water,
		}
	}
	return b
}

func (b *Blender) lookup(id biome.ID) (*sample, error) {
	if int(id) >= len(b.samples) {
		return nil, fmt.Errorf("%w: %d", biome.ErrInvalidBiomeID, id)
	}
	return &b.samples[id], nil
}

// Column blends the window centred on world column (wx, wz).
//
// Samples are visited in index order 0..WindowSamples-1. Amplitude and
// midpoint are accumulated as weighted offsets from the centre biome, so
// a uniform window reproduces the catalog values exactly.
func (b *Blender) Column(g *biomegrid.Grid, wx, wz int) (ColumnParams, error) {
	lx, lz := wx-g.X, wz-g.Z
	if lx < Radius || lz < Radius || lx+Radius >= g.Width || lz+Radius >= g.Height {
		return ColumnParams{}, fmt.Errorf("%w: column (%d,%d) needs %d cells around it in %s",
			biomegrid.ErrMissingHalo, wx, wz, Radius, g.Rect)
	}

	c, err := b.lookup(g.At(lx, lz))
	if err != nil {
		return ColumnParams{}, err
	}

	var sumW, sumA, sumM float32
	nearest := -1
	var nearestDist float32

	for i := range WindowSamples {
		s, err := b.lookup(g.At(lx+i%WindowSize-Radius, lz+i/WindowSize-Radius))
		if err != nil {
			return ColumnParams{}, err
		}
		w := b.kernel.weight[i]
		sumW += w
		sumA += float32(w * (s.amplitude - c.amplitude))
		sumM += float32(w * (s.midpoint - c.midpoint))

		if c.water && !s.water && (nearest < 0 || b.kernel.dist[i] < nearestDist) {
			nearest = i
			nearestDist = b.kernel.dist[i]
		}
	}
	if !(sumW > 0) {
		return ColumnParams{}, fmt.Errorf("%w: column (%d,%d) sums to %v", ErrDegenerateWeightSum, wx, wz, sumW)
	}

	p := ColumnParams{
		Frequency:   c.frequency,
		Amplitude:   c.amplitude + sumA/sumW,
		Midpoint:    c.midpoint + sumM/sumW,
		Block:       c.block,
		Water:       c.water,
		Replacement: c.block,
	}
	if nearest >= 0 {
		s, _ := b.lookup(g.At(lx+nearest%WindowSize-Radius, lz+nearest/WindowSize-Radius))
		p.Replacement = s.block
	}
	return p, nil
}
