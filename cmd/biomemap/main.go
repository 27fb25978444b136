// Command biomemap renders the biome grid of an area as a PNG image with one
// pixel per block column.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/worldgen/internal/config"
	"github.com/OCharnyshevich/worldgen/internal/setup"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	var (
		configPath = flag.String("config", "", "YAML config file")
		x          = flag.Int("x", 0, "west edge in blocks")
		z          = flag.Int("z", 0, "north edge in blocks")
		width      = flag.Int("w", 1024, "width in blocks")
		height     = flag.Int("h", 1024, "height in blocks")
		out        = flag.String("o", "biomes.png", "output PNG path")
	)
	flag.Parse()

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		config.Merge(cfg, fromFile, config.Explicit(flag.CommandLine))
	}

	log, err := setup.Logger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cat, err := setup.Catalog(cfg)
	if err != nil {
		log.Error("load catalog", "error", err)
		os.Exit(1)
	}
	p, err := setup.Pipeline(cfg, cat, log)
	if err != nil {
		log.Error("build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	area := biomegrid.Rect{X: *x, Z: *z, Width: *width, Height: *height}
	g, err := p.Generate(ctx, cfg.Seed, area)
	if err != nil {
		log.Error("generate biome grid", "area", area.String(), "error", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Error("create output", "error", err)
		os.Exit(1)
	}
	if err := biomegrid.WritePNG(f, g, cat); err != nil {
		f.Close()
		log.Error("write png", "error", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		log.Error("close output", "error", err)
		os.Exit(1)
	}
	log.Info("biome map written", "path", *out, "area", area.String(), "seed", cfg.Seed, "scale", p.Scale())
}
