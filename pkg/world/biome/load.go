package biome

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// CatalogVersions is the range of catalog file versions this build reads.
const CatalogVersions = ">= 1.0, < 2.0"

//go:embed catalog.schema.json
var catalogSchemaJSON string

var (
	catalogSchema     = jsonschema.MustCompileString("catalog.schema.json", catalogSchemaJSON)
	catalogConstraint = mustConstraint(CatalogVersions)
)

type catalogFile struct {
	Version string       `yaml:"version"`
	Biomes  []Definition `yaml:"biomes"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	// The validator expects JSON value types.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize catalog: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(asJSON, &normalized); err != nil {
		return nil, fmt.Errorf("normalize catalog: %w", err)
	}
	if err := catalogSchema.Validate(normalized); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	v, err := version.NewVersion(f.Version)
	if err != nil {
		return nil, fmt.Errorf("catalog version: %w", err)
	}
	if !catalogConstraint.Check(v) {
		return nil, fmt.Errorf("catalog version %s not in %q", v, CatalogVersions)
	}

	return NewCatalog(f.Biomes)
}

// MarshalCatalog encodes c as a YAML catalog document.
func MarshalCatalog(c *Catalog) ([]byte, error) {
	return yaml.Marshal(catalogFile{Version: "1.0", Biomes: c.defs})
}

func mustConstraint(s string) version.Constraints {
	c, err := version.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}
