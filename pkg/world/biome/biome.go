// Package biome defines the biome catalog: the immutable, ordered table of
// terrain categories and their shape parameters.
package biome

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldgen/pkg/world/block"
)

// ID indexes into a Catalog.
type ID uint8

// MaxBiomes is the largest catalog an ID can address.
const MaxBiomes = 256

// ErrInvalidBiomeID is returned when an ID is outside the catalog.
var ErrInvalidBiomeID = errors.New("invalid biome id")

// Role marks biomes the grid pipeline treats specially.
type Role string

const (
	RoleLand  Role = ""
	RoleOcean Role = "ocean"
	RoleRiver Role = "river"
)

// Definition holds the shape parameters of one biome.
type Definition struct {
	Name      string   `yaml:"name"`
	Role      Role     `yaml:"role,omitempty"`
	Frequency float32  `yaml:"frequency"`
	Amplitude float32  `yaml:"amplitude"`
	Midpoint  float32  `yaml:"midpoint"`
	Block     block.ID `yaml:"block"`
	Water     bool     `yaml:"water,omitempty"`
	Color     [3]uint8 `yaml:"color,flow"`
}

// Catalog is an immutable biome table. It is safe to share between
// goroutines without synchronization.
type Catalog struct {
	defs  []Definition
	ocean ID
	river ID
	land  []ID
}

// NewCatalog validates defs and builds a Catalog. Exactly one ocean and one
// river biome are required, plus at least one land biome that is not water.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("catalog is empty")
	}
	if len(defs) > MaxBiomes {
		return nil, fmt.Errorf("catalog has %d biomes, max %d", len(defs), MaxBiomes)
	}

	c := &Catalog{defs: make([]Definition, len(defs))}
	copy(c.defs, defs)

	var haveOcean, haveRiver bool
	seen := make(map[string]bool, len(defs))
	for i, d := range c.defs {
		id := ID(i)
		if d.Name == "" {
			return nil, fmt.Errorf("biome %d: missing name", i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("biome %q: duplicate name", d.Name)
		}
		seen[d.Name] = true
		if !d.Block.Valid() {
			return nil, fmt.Errorf("biome %q: unknown block %d", d.Name, d.Block)
		}
		if d.Frequency <= 0 {
			return nil, fmt.Errorf("biome %q: frequency must be positive", d.Name)
		}
		if d.Amplitude <= 0 {
			return nil, fmt.Errorf("biome %q: amplitude must be positive", d.Name)
		}

		switch d.Role {
		case RoleOcean:
			if haveOcean {
				return nil, fmt.Errorf("biome %q: second ocean biome", d.Name)
			}
			haveOcean = true
			c.ocean = id
		case RoleRiver:
			if haveRiver {
				return nil, fmt.Errorf("biome %q: second river biome", d.Name)
			}
			haveRiver = true
			c.river = id
		case RoleLand:
			if !d.Water {
				c.land = append(c.land, id)
			}
		default:
			return nil, fmt.Errorf("biome %q: unknown role %q", d.Name, d.Role)
		}
	}

	if !haveOcean {
		return nil, errors.New("catalog has no ocean biome")
	}
	if !haveRiver {
		return nil, errors.New("catalog has no river biome")
	}
	if len(c.land) == 0 {
		return nil, errors.New("catalog has no dry land biome")
	}
	return c, nil
}

// Len returns the number of biomes.
func (c *Catalog) Len() int { return len(c.defs) }

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id ID) (Definition, error) {
	if int(id) >= len(c.defs) {
		return Definition{}, fmt.Errorf("%w: %d (catalog has %d)", ErrInvalidBiomeID, id, len(c.defs))
	}
	return c.defs[id], nil
}

// MustLookup is Lookup for callers that have already validated id.
// An out-of-range id is a programming error and panics.
func (c *Catalog) MustLookup(id ID) Definition {
	d, err := c.Lookup(id)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether id is inside the catalog.
func (c *Catalog) Valid(id ID) bool { return int(id) < len(c.defs) }

// Ocean returns the ocean biome.
func (c *Catalog) Ocean() ID { return c.ocean }

// River returns the river biome.
func (c *Catalog) River() ID { return c.river }

// Land returns the dry land biomes in catalog order.
func (c *Catalog) Land() []ID {
	out := make([]ID, len(c.land))
	copy(out, c.land)
	return out
}
