// Package setup builds the logger and generators described by a config.
package setup

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/OCharnyshevich/worldgen/internal/config"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

// Logger returns a text logger writing to w at the configured level.
func Logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Catalog loads the configured catalog, or the built-in one when no path
// is set.
func Catalog(cfg *config.Config) (*biome.Catalog, error) {
	if cfg.CatalogPath == "" {
		return biome.DefaultCatalog(), nil
	}
	return biome.LoadCatalog(cfg.CatalogPath)
}

// Pipeline builds the biome grid pipeline for cfg.
func Pipeline(cfg *config.Config, cat *biome.Catalog, log *slog.Logger) (*biomegrid.Pipeline, error) {
	backend, err := noise.ParseBackend(cfg.NoiseBackend)
	if err != nil {
		return nil, err
	}
	stages, err := biomegrid.ParseStages(cfg.Stages)
	if err != nil {
		return nil, err
	}
	mask := biomegrid.NewMaskClassifier(cat)
	mask.LandPercent = uint32(cfg.LandPercent)
	mask.Workers = cfg.Workers

	p := biomegrid.NewPipeline(cat, log)
	p.Classifier = mask
	p.Stages = stages
	p.Noise = backend
	p.Workers = cfg.Workers
	return p, nil
}

// Generator builds the region generator for cfg.
func Generator(cfg *config.Config, log *slog.Logger) (*region.Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cat, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}
	p, err := Pipeline(cfg, cat, log)
	if err != nil {
		return nil, err
	}

	g := region.NewGenerator(cat, log)
	g.Biomes = p
	g.Density.Backend = p.Noise
	g.Density.Dim = cfg.RegionDim
	g.Density.Workers = cfg.Workers
	return g, nil
}
