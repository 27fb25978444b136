// Command worldgen generates a box of regions, writes them to region files
// and records them in the region index.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/OCharnyshevich/worldgen/internal/config"
	"github.com/OCharnyshevich/worldgen/internal/setup"
	"github.com/OCharnyshevich/worldgen/internal/store"
	"github.com/OCharnyshevich/worldgen/pkg/world/anvil"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	var (
		configPath = flag.String("config", "", "YAML config file")
		from       = flag.String("from", "0,0,0", "first region x,y,z")
		to         = flag.String("to", "0,0,0", "last region x,y,z (inclusive)")
		verify     = flag.Bool("verify", false, "regenerate indexed regions and compare digests instead of generating")
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

	lo, err := parsePos(*from)
	if err != nil {
		log.Error("parse -from", "error", err)
		os.Exit(1)
	}
	hi, err := parsePos(*to)
	if err != nil {
		log.Error("parse -to", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *verify {
		err = runVerify(ctx, cfg, log, region.Box(lo, hi))
	} else {
		err = run(ctx, cfg, log, region.Box(lo, hi))
	}
	if err != nil {
		log.Error("worldgen failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, positions []region.Pos) error {
	gen, err := setup.Generator(cfg, log)
	if err != nil {
		return err
	}
	compression, err := anvil.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := config.Save(filepath.Join(cfg.OutputDir, "worldgen.yaml"), cfg); err != nil {
		return err
	}
	catalog, err := biome.MarshalCatalog(gen.Density.Catalog)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "biomes.yaml"), catalog, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	index, err := store.Open(cfg.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	runID := uuid.NewString()
	started := time.Now()
	if err := index.StartRun(ctx, store.Run{ID: runID, Seed: cfg.Seed, StartedAt: started, Config: cfg.YAML()}); err != nil {
		return err
	}
	log.Info("generating regions", "run", runID, "seed", cfg.Seed, "regions", len(positions), "dim", cfg.RegionDim)

	var failed int
	err = gen.Batch(ctx, cfg.Seed, positions, cfg.Workers, func(res region.Result) error {
		if res.Err != nil {
			failed++
			log.Error("generate region", "region", res.Pos.String(), "error", res.Err)
			return nil
		}
		path, err := anvil.SaveRegion(cfg.OutputDir, res.Region, compression)
		if err != nil {
			return err
		}
		return index.Record(ctx, store.Entry{
			Seed:        cfg.Seed,
			Pos:         res.Pos,
			Dim:         res.Region.Dim,
			Path:        path,
			Digest:      res.Region.Digest(),
			Compression: compression.String(),
			RunID:       runID,
			GeneratedAt: time.Now(),
		})
	})
	if err != nil {
		return err
	}

	log.Info("generation finished", "run", runID, "regions", len(positions)-failed, "failed", failed, "elapsed", time.Since(started))
	if failed > 0 {
		return fmt.Errorf("%d of %d regions failed", failed, len(positions))
	}
	return nil
}

// runVerify regenerates every indexed region in the box and checks it
// against both the recorded digest and the region file on disk.
func runVerify(ctx context.Context, cfg *config.Config, log *slog.Logger, positions []region.Pos) error {
	gen, err := setup.Generator(cfg, log)
	if err != nil {
		return err
	}
	index, err := store.Open(cfg.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	var mismatches, missing int
	err = gen.Batch(ctx, cfg.Seed, positions, cfg.Workers, func(res region.Result) error {
		if res.Err != nil {
			return res.Err
		}
		e, err := index.Lookup(ctx, cfg.Seed, res.Pos, res.Region.Dim)
		if errors.Is(err, store.ErrNotFound) {
			missing++
			log.Warn("region not indexed", "region", res.Pos.String())
			return nil
		}
		if err != nil {
			return err
		}
		digest := res.Region.Digest()
		if e.Digest != digest {
			mismatches++
			log.Error("digest mismatch", "region", res.Pos.String(), "indexed", e.Digest, "generated", digest, "run", e.RunID)
			return nil
		}
		saved, err := anvil.LoadRegion(cfg.OutputDir, res.Pos)
		if err != nil {
			return err
		}
		if diff := region.Diff(saved, res.Region); diff != 0 {
			mismatches++
			log.Error("region file differs", "region", res.Pos.String(), "blocks", diff)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("verification finished", "regions", len(positions), "missing", missing, "mismatches", mismatches)
	if mismatches > 0 {
		return fmt.Errorf("%d regions do not replay", mismatches)
	}
	return nil
}

func parsePos(s string) (region.Pos, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return region.Pos{}, fmt.Errorf("region %q: want x,y,z", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return region.Pos{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	return region.Pos{X: v[0], Y: v[1], Z: v[2]}, nil
}
