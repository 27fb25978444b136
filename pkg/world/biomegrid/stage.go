package biomegrid

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldgen/internal/parallel"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

// ErrUnknownStage is returned by ParseStages for an unrecognized name.
var ErrUnknownStage = errors.New("unknown biome grid stage")

// Env carries the read-only inputs shared by every cell of a pass.
type Env struct {
	Seed    int64
	Catalog *biome.Catalog
	Noise   noise.Source
	Workers int
}

// Stage is one grid transform. Apply must be a pure function of env and in:
// each output cell depends only on the seed, its level coordinate and the
// input cells around it, so passes can run with any number of workers.
type Stage interface {
	Name() string
	// OutputRect is the area produced from an input covering in.
	OutputRect(in Rect) Rect
	// InputRect is the smallest input area whose output covers out.
	InputRect(out Rect) Rect
	Apply(ctx context.Context, env Env, in *Grid) (*Grid, error)
}

// Zoom doubles the resolution: n cells become 2n-1. Cells at even/even
// positions copy their source; the others pick one of the 2 or 4 adjacent
// source cells with the coordinate hash. IDs are categorical, so nothing is
// ever averaged.
type Zoom struct{}

func (Zoom) Name() string { return "zoom" }

func (Zoom) OutputRect(in Rect) Rect {
	return Rect{X: 2 * in.X, Z: 2 * in.Z, Width: 2*in.Width - 1, Height: 2*in.Height - 1}
}

func (Zoom) InputRect(out Rect) Rect {
	x := floorHalf(out.X)
	z := floorHalf(out.Z)
	return Rect{
		X:      x,
		Z:      z,
		Width:  ceilHalf(out.X+out.Width-1-2*x) + 1,
		Height: ceilHalf(out.Z+out.Height-1-2*z) + 1,
	}
}

func (s Zoom) Apply(ctx context.Context, env Env, in *Grid) (*Grid, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: zoom input %s is empty", ErrMissingHalo, in.Rect)
	}
	out := NewGrid(s.OutputRect(in.Rect))

	err := parallel.For(ctx, env.Workers, out.Height, func(z int) error {
		iz := z >> 1
		gz := out.Z + z
		for x := 0; x < out.Width; x++ {
			ix := x >> 1
			gx := out.X + x
			a := in.At(ix, iz)

			var v biome.ID
			switch {
			case x&1 == 0 && z&1 == 0:
				v = a
			case z&1 == 0:
				v = noise.Pick(noise.Hash2(env.Seed, gx, gz), a, in.At(ix+1, iz))
			case x&1 == 0:
				v = noise.Pick(noise.Hash2(env.Seed, gx, gz), a, in.At(ix, iz+1))
			default:
				v = noise.Pick(noise.Hash2(env.Seed, gx, gz),
					a, in.At(ix+1, iz), in.At(ix, iz+1), in.At(ix+1, iz+1))
			}
			out.Set(x, z, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Smooth removes single-cell noise and trims one cell from every side.
// If both the left/right and top/bottom neighbours agree, one of the two
// agreeing values is picked by hash; if only one axis agrees, that axis
// wins; otherwise the centre is kept.
type Smooth struct{}

func (Smooth) Name() string { return "smooth" }

func (Smooth) OutputRect(in Rect) Rect { return in.Grow(-1) }

func (Smooth) InputRect(out Rect) Rect { return out.Grow(1) }

func (s Smooth) Apply(ctx context.Context, env Env, in *Grid) (*Grid, error) {
	return neighbourPass(ctx, env, in, func(gx, gz int, c, l, r, t, b biome.ID) biome.ID {
		switch {
		case l == r && t == b:
			return noise.Pick(noise.Hash2(env.Seed, gx, gz), l, t)
		case l == r:
			return l
		case t == b:
			return t
		default:
			return c
		}
	})
}

// Rivers trims one cell from every side and turns a cell into the river
// biome when its left/right or top/bottom neighbours differ and neither
// of that pair is ocean. Rivers therefore follow land biome borders and
// never appear along coasts.
type Rivers struct{}

func (Rivers) Name() string { return "rivers" }

func (Rivers) OutputRect(in Rect) Rect { return in.Grow(-1) }

func (Rivers) InputRect(out Rect) Rect { return out.Grow(1) }

func (s Rivers) Apply(ctx context.Context, env Env, in *Grid) (*Grid, error) {
	ocean := env.Catalog.Ocean()
	river := env.Catalog.River()
	border := func(a, b biome.ID) bool {
		return a != b && a != ocean && b != ocean
	}
	return neighbourPass(ctx, env, in, func(_, _ int, c, l, r, t, b biome.ID) biome.ID {
		if border(l, r) || border(t, b) {
			return river
		}
		return c
	})
}

// DefaultLandScale is the noise frequency Land samples at, in level cells.
const DefaultLandScale = 0.25

// Land noise layering.
const (
	landOctaves    = 2
	landLacunarity = 2
	landGain       = 0.5
)

// Land turns a land/ocean mask into concrete biomes. Ocean cells stay
// ocean; every other cell takes one of the catalog's dry land biomes,
// chosen by coherent 2D noise so that neighbouring cells tend to agree.
// The grid size is unchanged.
type Land struct {
	Scale float32
}

func (Land) Name() string { return "land" }

func (Land) OutputRect(in Rect) Rect { return in }

func (Land) InputRect(out Rect) Rect { return out }

func (s Land) Apply(ctx context.Context, env Env, in *Grid) (*Grid, error) {
	if env.Noise == nil {
		return nil, errors.New("land stage needs a noise source")
	}
	scale := s.Scale
	if scale == 0 {
		scale = DefaultLandScale
	}
	ocean := env.Catalog.Ocean()
	land := env.Catalog.Land()
	out := NewGrid(in.Rect)

	err := parallel.For(ctx, env.Workers, out.Height, func(z int) error {
		gz := out.Z + z
		for x := 0; x < out.Width; x++ {
			c := in.At(x, z)
			if c == ocean {
				out.Set(x, z, ocean)
				continue
			}
			n := noise.FBM2D(env.Noise, float32(out.X+x)*scale, float32(gz)*scale, landOctaves, landLacunarity, landGain)
			i := int((n + 1) / 2 * float32(len(land)))
			out.Set(x, z, land[max(0, min(i, len(land)-1))])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// neighbourPass runs fn over every interior cell of in, handing it the
// centre and its left, right, top and bottom neighbours.
func neighbourPass(ctx context.Context, env Env, in *Grid, fn func(gx, gz int, c, l, r, t, b biome.ID) biome.ID) (*Grid, error) {
	if in.Width < 3 || in.Height < 3 {
		return nil, fmt.Errorf("%w: input %s smaller than 3x3", ErrMissingHalo, in.Rect)
	}
	out := NewGrid(in.Grow(-1))

	err := parallel.For(ctx, env.Workers, out.Height, func(z int) error {
		iz := z + 1
		gz := out.Z + z
		for x := 0; x < out.Width; x++ {
			ix := x + 1
			out.Set(x, z, fn(out.X+x, gz,
				in.At(ix, iz),
				in.At(ix-1, iz), in.At(ix+1, iz),
				in.At(ix, iz-1), in.At(ix, iz+1),
			))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultStageNames is the standard pass sequence: ten zooms, each followed
// by a smooth, with land assignment after the second and rivers after the
// sixth.
var DefaultStageNames = []string{
	"zoom", "smooth", "zoom", "smooth",
	"land",
	"zoom", "smooth", "zoom", "smooth", "zoom", "smooth", "zoom", "smooth",
	"rivers",
	"zoom", "smooth", "zoom", "smooth", "zoom", "smooth", "zoom", "smooth",
}

// ParseStages resolves stage names.
func ParseStages(names []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		switch n {
		case "zoom":
			stages = append(stages, Zoom{})
		case "smooth":
			stages = append(stages, Smooth{})
		case "rivers":
			stages = append(stages, Rivers{})
		case "land":
			stages = append(stages, Land{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, n)
		}
	}
	return stages, nil
}

// DefaultStages returns the parsed DefaultStageNames.
func DefaultStages() []Stage {
	s, err := ParseStages(DefaultStageNames)
	if err != nil {
		panic(err)
	}
	return s
}

func floorHalf(v int) int { return v >> 1 }

func ceilHalf(v int) int { return (v + 1) >> 1 }
