package density

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCharnyshevich/worldgen/internal/parallel"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
	"github.com/OCharnyshevich/worldgen/pkg/world/coord"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

// Generator fills cubic regions from biome grids.
type Generator struct {
	Catalog *biome.Catalog
	Backend noise.Backend
	// Dim is the side of a region in blocks.
	Dim     int
	Workers int
	Log     *slog.Logger

	blender *Blender
}

// NewGenerator returns a generator for DefaultDim regions.
func NewGenerator(cat *biome.Catalog, log *slog.Logger) *Generator {
	return &Generator{
		Catalog: cat,
		Backend: noise.OpenSimplex,
		Dim:     DefaultDim,
		Log:     log,
		blender: NewBlender(cat),
	}
}

// Required returns the biome grid area Generate needs for a region at
// origin: the region's columns plus Radius cells on every side.
func (g *Generator) Required(origin coord.Pos) biomegrid.Rect {
	return biomegrid.Rect{X: origin.X, Z: origin.Z, Width: g.Dim, Height: g.Dim}.Grow(Radius)
}

// Generate returns the blocks of the region whose lowest corner is origin,
// indexed by Index. grid must cover Required(origin) in world columns.
//
// The terrain field is seeded with seed and the choice field with seed+1.
// Columns are computed in parallel; each writes only its own slots, so the
// result does not depend on Workers.
func (g *Generator) Generate(ctx context.Context, seed int64, origin coord.Pos, grid *biomegrid.Grid) ([]block.ID, error) {
	if g.Dim <= 0 {
		return nil, fmt.Errorf("region dim %d must be positive", g.Dim)
	}
	need := g.Required(origin)
	if !grid.Contains(need) {
		return nil, fmt.Errorf("%w: region %s needs %s, grid covers %s",
			biomegrid.ErrMissingHalo, origin, need, grid.Rect)
	}
	blender := g.blender
	if blender == nil {
		blender = NewBlender(g.Catalog)
	}

	terrain, err := noise.New(g.Backend, seed)
	if err != nil {
		return nil, err
	}
	choice, err := noise.New(g.Backend, seed+1)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dim := g.Dim
	out := make([]block.ID, dim*dim*dim)

	err = parallel.For(ctx, g.Workers, dim, func(x int) error {
		wx := origin.X + x
		for z := 0; z < dim; z++ {
			wz := origin.Z + z
			p, err := blender.Column(grid, wx, wz)
			if err != nil {
				return err
			}
			fillColumn(out[Index(dim, x, 0, z):Index(dim, x, 0, z)+dim], terrain, choice, p, wx, origin.Y, wz)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if g.Log != nil {
		g.Log.Debug("region density generated",
			"seed", seed,
			"origin", origin.String(),
			"dim", dim,
			"elapsed", time.Since(start),
		)
	}
	return out, nil
}

// fillColumn writes the solid voxels of one column into col, which starts
// at world height y0. Air slots are left untouched.
//
// Noise is bounded by 1 in magnitude, so a negative gradient is always
// solid and a gradient of at least 1 is always air; the fields are only
// sampled in between.
func fillColumn(col []block.ID, terrain, choice noise.Source, p ColumnParams, wx, y0, wz int) {
	fx := float32(wx) * p.Frequency
	fz := float32(wz) * p.Frequency
	cx := float32(wx) * ChoiceFrequency
	cz := float32(wz) * ChoiceFrequency

	for y := range col {
		wy := y0 + y
		grad := Gradient(wy, p.Midpoint, p.Amplitude)
		if grad >= 1 {
			continue
		}
		if grad < 0 {
			col[y] = p.SolidBlock(wy)
			continue
		}

		fy := float32(wy) * p.Frequency
		a := noise.FBM3D(terrain, fx, fy, fz, Octaves, Lacunarity, Gain)
		b := noise.FBM3D(terrain, fx, fy+FieldOffset, fz, Octaves, Lacunarity, Gain)
		t := noise.FBM3D(choice, cx, float32(wy)*ChoiceFrequency, cz, Octaves, Lacunarity, Gain)
		n := noise.Lerp(a, b, (t+1)/2)

		if Solid(n, grad) {
			col[y] = p.SolidBlock(wy)
		}
	}
}
