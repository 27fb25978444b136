package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/worldgen/pkg/world/anvil"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/chunk"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

// Config holds the generator and service configuration.
type Config struct {
	Seed         int64    `json:"seed" yaml:"seed"`
	RegionDim    int      `json:"region_dim" yaml:"region_dim"`
	Workers      int      `json:"workers" yaml:"workers"` // 0 = one per CPU
	NoiseBackend string   `json:"noise_backend" yaml:"noise_backend"`
	CatalogPath  string   `json:"catalog_path" yaml:"catalog_path"` // empty = built-in catalog
	Stages       []string `json:"stages" yaml:"stages"`
	LandPercent  int      `json:"land_percent" yaml:"land_percent"`
	OutputDir    string   `json:"output_dir" yaml:"output_dir"`
	IndexPath    string   `json:"index_path" yaml:"index_path"`
	Compression  string   `json:"compression" yaml:"compression"`
	ListenAddr   string   `json:"listen_addr" yaml:"listen_addr"`
	CacheMB      int      `json:"cache_mb" yaml:"cache_mb"` // in-memory region cache of the server
	LogLevel     string   `json:"log_level" yaml:"log_level"`

	// AllowedOrigins lists browser origins allowed to open the websocket
	// besides the server's own. "*" allows any origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RegionDim:    256,
		NoiseBackend: string(noise.OpenSimplex),
		Stages:       append([]string(nil), biomegrid.DefaultStageNames...),
		LandPercent:  50,
		OutputDir:    "world",
		IndexPath:    "world/index.db",
		Compression:  "zlib",
		ListenAddr:   ":8765",
		CacheMB:      256,
		LogLevel:     "info",
	}
}

// Load reads a YAML config file. Fields missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// YAML renders cfg as a YAML document.
func (c *Config) YAML() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// Save writes cfg as YAML to path using a temp file and rename.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["dim"] {
		cfg.RegionDim = fromFile.RegionDim
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["noise"] {
		cfg.NoiseBackend = fromFile.NoiseBackend
	}
	if !explicitFlags["catalog"] {
		cfg.CatalogPath = fromFile.CatalogPath
	}
	if !explicitFlags["stages"] {
		cfg.Stages = fromFile.Stages
	}
	if !explicitFlags["land-percent"] {
		cfg.LandPercent = fromFile.LandPercent
	}
	if !explicitFlags["out"] {
		cfg.OutputDir = fromFile.OutputDir
	}
	if !explicitFlags["index"] {
		cfg.IndexPath = fromFile.IndexPath
	}
	if !explicitFlags["compression"] {
		cfg.Compression = fromFile.Compression
	}
	if !explicitFlags["listen"] {
		cfg.ListenAddr = fromFile.ListenAddr
	}
	if !explicitFlags["cache-mb"] {
		cfg.CacheMB = fromFile.CacheMB
	}
	if !explicitFlags["origins"] {
		cfg.AllowedOrigins = fromFile.AllowedOrigins
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
}

// RegisterFlags binds the shared command line flags to c. Flag names
// match the keys Merge recognises.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Int64Var(&c.Seed, "seed", c.Seed, "world seed")
	fs.IntVar(&c.RegionDim, "dim", c.RegionDim, "region edge length in blocks")
	fs.IntVar(&c.Workers, "workers", c.Workers, "parallel workers (0 = one per CPU)")
	fs.StringVar(&c.NoiseBackend, "noise", c.NoiseBackend, "noise backend: opensimplex, simplex or perlin")
	fs.StringVar(&c.CatalogPath, "catalog", c.CatalogPath, "biome catalog YAML (empty = built-in)")
	fs.Func("stages", "comma-separated biome grid stages", func(s string) error {
		c.Stages = SplitList(s)
		return nil
	})
	fs.IntVar(&c.LandPercent, "land-percent", c.LandPercent, "share of land in the coarse mask")
	fs.StringVar(&c.OutputDir, "out", c.OutputDir, "region output directory")
	fs.StringVar(&c.IndexPath, "index", c.IndexPath, "region index database")
	fs.StringVar(&c.Compression, "compression", c.Compression, "region compression: gzip, zlib, zstd, xz or none")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "websocket listen address")
	fs.IntVar(&c.CacheMB, "cache-mb", c.CacheMB, "server region cache size in MiB (0 = off)")
	fs.Func("origins", "comma-separated browser origins allowed to connect (* = any)", func(s string) error {
		c.AllowedOrigins = SplitList(s)
		return nil
	})
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Explicit returns the names of the flags set on the command line.
func Explicit(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// Validate checks that every field names something the generator can use.
func (c *Config) Validate() error {
	var errs []error
	if c.RegionDim <= 0 || c.RegionDim%chunk.Dim != 0 || c.RegionDim > 1024 {
		errs = append(errs, fmt.Errorf("region_dim %d must be a multiple of %d in (0,1024]", c.RegionDim, chunk.Dim))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if _, err := noise.ParseBackend(c.NoiseBackend); err != nil {
		errs = append(errs, err)
	}
	if _, err := biomegrid.ParseStages(c.Stages); err != nil {
		errs = append(errs, err)
	}
	if c.CacheMB < 0 {
		errs = append(errs, fmt.Errorf("cache_mb %d must not be negative", c.CacheMB))
	}
	if c.LandPercent < 0 || c.LandPercent > 100 {
		errs = append(errs, fmt.Errorf("land_percent %d out of range [0,100]", c.LandPercent))
	}
	if _, err := anvil.ParseCompression(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// SplitList parses a comma-separated flag value.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
