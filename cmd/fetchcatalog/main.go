// Command fetchcatalog downloads a biome catalog directory from any source
// go-getter understands (git, http archives, s3, local paths) and checks
// that the catalog inside it loads before replacing the local copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
)

func main() {
	var (
		src  = flag.String("src", "", "catalog source, e.g. git::https://example.com/catalogs.git//biomes")
		file = flag.String("file", "biomes.yaml", "catalog file inside the downloaded directory")
		out  = flag.String("o", "./catalogs", "output directory")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *src == "" {
		log.Error("-src required")
		os.Exit(2)
	}
	if *out == "" {
		log.Error("-o required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fetch(ctx, log, *src, *out, *file); err != nil {
		log.Error("fetch catalog", "src", *src, "error", err)
		os.Exit(1)
	}
}

func fetch(ctx context.Context, log *slog.Logger, src, out, file string) error {
	parent := filepath.Dir(filepath.Clean(out))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, ".fetchcatalog-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	// Local sources are copied, not symlinked.
	getters := maps.Clone(get.Getters)
	getters["file"] = &get.FileGetter{Copy: true}

	// go-getter wants a destination that does not exist yet.
	dst := filepath.Join(tmp, "catalog")
	client := &get.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    get.ClientModeDir,
		Getters: getters,
	}
	log.Info("start downloading catalog", "src", src)
	if err := client.Get(); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	cat, err := biome.LoadCatalog(filepath.Join(dst, file))
	if err != nil {
		return err
	}

	if err := os.RemoveAll(out); err != nil {
		return err
	}
	if err := os.Rename(dst, out); err != nil {
		return fmt.Errorf("install catalog: %w", err)
	}
	log.Info("done downloading catalog", "path", out, "biomes", cat.Len())
	return nil
}
