package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/worldgen/internal/config"
	"github.com/OCharnyshevich/worldgen/internal/server"
	"github.com/OCharnyshevich/worldgen/internal/setup"
	"github.com/OCharnyshevich/worldgen/internal/store"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	configPath := flag.String("config", "", "YAML config file")
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

	gen, err := setup.Generator(cfg, log)
	if err != nil {
		log.Error("build generator", "error", err)
		os.Exit(1)
	}

	var index *store.Index
	if cfg.OutputDir != "" && cfg.IndexPath != "" {
		index, err = store.Open(cfg.IndexPath)
		if err != nil {
			log.Error("open region index", "error", err)
			os.Exit(1)
		}
		defer index.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg, gen, index, log)
	if err != nil {
		log.Error("create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
