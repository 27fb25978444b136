package biomegrid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

const (
	stageSeedStride = 0x2545f4914f6cdd1d
	landNoiseSalt   = 0x6c616e64 // "land"
)

// Pipeline runs a fixed sequence of stages from a classifier's seed grid to
// a grid at block-column resolution.
type Pipeline struct {
	Catalog    *biome.Catalog
	Classifier Classifier
	Stages     []Stage
	Noise      noise.Backend
	Workers    int
	Log        *slog.Logger
}

// NewPipeline returns a pipeline with the default stages, a mask classifier
// and the default noise backend.
func NewPipeline(cat *biome.Catalog, log *slog.Logger) *Pipeline {
	return &Pipeline{
		Catalog:    cat,
		Classifier: NewMaskClassifier(cat),
		Stages:     DefaultStages(),
		Noise:      noise.OpenSimplex,
		Log:        log,
	}
}

// Scale is the number of final cells spanned by one classifier cell along
// each axis.
func (p *Pipeline) Scale() int {
	s := 1
	for _, st := range p.Stages {
		if _, ok := st.(Zoom); ok {
			s *= 2
		}
	}
	return s
}

// Plan returns, for every level, the area that must be produced so that
// the final level covers out. plan[0] is the classifier input and
// plan[len(Stages)] is out. Each entry carries the cumulative halo of all
// stages after it.
func (p *Pipeline) Plan(out Rect) []Rect {
	plan := make([]Rect, len(p.Stages)+1)
	plan[len(p.Stages)] = out
	for i := len(p.Stages) - 1; i >= 0; i-- {
		plan[i] = p.Stages[i].InputRect(plan[i+1])
	}
	return plan
}

// Generate produces the biome grid covering out for seed. Stages run in
// order; each stage's output is cropped to its planned area before it is
// handed to the next stage.
func (p *Pipeline) Generate(ctx context.Context, seed int64, out Rect) (*Grid, error) {
	if out.Empty() {
		return nil, fmt.Errorf("%w: requested area %s is empty", ErrMissingHalo, out)
	}
	start := time.Now()
	plan := p.Plan(out)

	grid, err := p.Classifier.Classify(ctx, seed, plan[0])
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", plan[0], err)
	}
	if grid, err = grid.Crop(plan[0]); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if err := grid.Validate(p.Catalog); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	src, err := noise.New(p.Noise, seed^landNoiseSalt)
	if err != nil {
		return nil, err
	}
	env := Env{Catalog: p.Catalog, Noise: src, Workers: p.Workers}

	for i, st := range p.Stages {
		env.Seed = StageSeed(seed, i)
		next, err := st.Apply(ctx, env, grid)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.Name(), err)
		}
		if grid, err = next.Crop(plan[i+1]); err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.Name(), err)
		}
	}

	if p.Log != nil {
		p.Log.Debug("biome grid generated",
			"seed", seed,
			"area", out.String(),
			"coarse", plan[0].String(),
			"stages", len(p.Stages),
			"elapsed", time.Since(start),
		)
	}
	return grid, nil
}

// StageSeed derives the hash seed of stage i so that passes at different
// levels make independent choices.
func StageSeed(seed int64, i int) int64 {
	return seed + int64(i+1)*stageSeedStride
}
