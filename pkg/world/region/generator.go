package region

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/worldgen/internal/parallel"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/density"
)

// Generator drives a region from seed to assembled blocks: the biome
// pipeline builds the columns plus the blending halo, then the density
// pass fills the cube.
type Generator struct {
	Biomes  *biomegrid.Pipeline
	Density *density.Generator
	Log     *slog.Logger
}

// NewGenerator returns a generator using the default pipeline and dim.
func NewGenerator(cat *biome.Catalog, log *slog.Logger) *Generator {
	return &Generator{
		Biomes:  biomegrid.NewPipeline(cat, log),
		Density: density.NewGenerator(cat, log),
		Log:     log,
	}
}

// Dim is the side of generated regions.
func (g *Generator) Dim() int { return g.Density.Dim }

// Generate produces the region at pos. The result depends only on seed
// and pos.
func (g *Generator) Generate(ctx context.Context, seed int64, pos Pos) (*Region, error) {
	start := time.Now()
	origin := pos.Origin(g.Dim())

	grid, err := g.Biomes.Generate(ctx, seed, g.Density.Required(origin))
	if err != nil {
		return nil, fmt.Errorf("biomes for %s: %w", pos, err)
	}
	blocks, err := g.Density.Generate(ctx, seed, origin, grid)
	if err != nil {
		return nil, fmt.Errorf("density for %s: %w", pos, err)
	}
	r, err := Assemble(pos, g.Dim(), blocks, grid)
	if err != nil {
		return nil, err
	}
	r.Seed = seed

	if g.Log != nil {
		g.Log.Info("region generated",
			"seed", seed,
			"region", pos.String(),
			"dim", r.Dim,
			"elapsed", time.Since(start),
		)
	}
	return r, nil
}

// Result is the outcome of one region in a batch.
type Result struct {
	Pos    Pos
	Region *Region
	Err    error
}

// Batch generates positions with at most workers regions in flight and
// calls fn once per region, serially, in completion order. A failed region
// is reported through fn and does not stop the others; only cancellation
// of ctx or an error returned by fn ends the batch early.
//
// The per-region fan-out of the biome and density passes is divided by the
// number of regions in flight, so the total stays near the configured
// worker count.
func (g *Generator) Batch(ctx context.Context, seed int64, positions []Pos, workers int, fn func(Result) error) error {
	outer, inner := splitWorkers(workers, g.Density.Workers, len(positions))
	gen := g.withWorkers(inner)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(outer)

	var mu sync.Mutex
	for _, pos := range positions {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			r, err := gen.Generate(gctx, seed, pos)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			return fn(Result{Pos: pos, Region: r, Err: err})
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// splitWorkers returns how many regions to run at once and how many
// workers each region gets. Zero or negative counts mean one per CPU.
func splitWorkers(regionWorkers, innerWorkers, regions int) (outer, inner int) {
	outer = max(1, min(parallel.Workers(regionWorkers), regions))
	inner = max(1, parallel.Workers(innerWorkers)/outer)
	return outer, inner
}

// withWorkers returns a copy of g whose passes use n workers each.
func (g *Generator) withWorkers(n int) *Generator {
	biomes := *g.Biomes
	biomes.Workers = n
	dens := *g.Density
	dens.Workers = n
	return &Generator{Biomes: &biomes, Density: &dens, Log: g.Log}
}

// Box lists every region position in the inclusive box [from, to] in X,
// then Y, then Z order.
func Box(from, to Pos) []Pos {
	var out []Pos
	for x := min(from.X, to.X); x <= max(from.X, to.X); x++ {
		for y := min(from.Y, to.Y); y <= max(from.Y, to.Y); y++ {
			for z := min(from.Z, to.Z); z <= max(from.Z, to.Z); z++ {
				out = append(out, Pos{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}
