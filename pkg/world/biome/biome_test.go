package biome

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/OCharnyshevich/worldgen/pkg/world/block"
)

func TestDefaultCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}
	if c.Ocean() != Ocean || c.River() != River {
		t.Fatalf("Ocean/River = %d/%d, want %d/%d", c.Ocean(), c.River(), Ocean, River)
	}

	d, err := c.Lookup(Desert)
	if err != nil {
		t.Fatalf("Lookup(Desert): %v", err)
	}
	if d.Name != "desert" || d.Block != block.Sand || d.Water {
		t.Errorf("Lookup(Desert) = %+v", d)
	}

	want := []ID{Plains, Hills, Desert, Forest}
	if got := c.Land(); !reflect.DeepEqual(got, want) {
		t.Errorf("Land() = %v, want %v", got, want)
	}
}

func TestLookupInvalidID(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Lookup(ID(c.Len()))
	if !errors.Is(err, ErrInvalidBiomeID) {
		t.Fatalf("err = %v, want ErrInvalidBiomeID", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLookup should panic on an invalid id")
		}
	}()
	c.MustLookup(200)
}

func TestCatalogIsImmutable(t *testing.T) {
	defs := DefaultDefinitions()
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatal(err)
	}
	defs[Plains].Midpoint = 1000
	c.Land()[0] = Ocean

	if got := c.MustLookup(Plains).Midpoint; got != 66 {
		t.Errorf("midpoint changed through caller slice: %f", got)
	}
	if got := c.Land()[0]; got != Plains {
		t.Errorf("Land()[0] = %d after caller mutation", got)
	}
}

func TestNewCatalogRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Definition) []Definition
		want   string
	}{
		{"empty", func([]Definition) []Definition { return nil }, "empty"},
		{"no ocean", func(d []Definition) []Definition { d[Ocean].Role = RoleLand; return d }, "no ocean"},
		{"two rivers", func(d []Definition) []Definition { d[Plains].Role = RoleRiver; return d }, "second river"},
		{"duplicate", func(d []Definition) []Definition { d[Hills].Name = "plains"; return d }, "duplicate"},
		{"bad block", func(d []Definition) []Definition { d[Hills].Block = 99; return d }, "unknown block"},
		{"zero amplitude", func(d []Definition) []Definition { d[Hills].Amplitude = 0; return d }, "amplitude"},
		{"only water land", func(d []Definition) []Definition { return []Definition{d[Ocean], d[River]} }, "no dry land"},
	}
	for _, tt := range tests {
		_, err := NewCatalog(tt.mutate(DefaultDefinitions()))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadCatalogFile(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "..", "configs", "biomes.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	def := DefaultCatalog()
	for i := 0; i < def.Len(); i++ {
		if got, want := c.MustLookup(ID(i)), def.MustLookup(ID(i)); got != want {
			t.Errorf("biome %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestParseCatalogRoundTrip(t *testing.T) {
	raw, err := MarshalCatalog(DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		t.Fatalf("ParseCatalog(marshalled default): %v\n%s", err, raw)
	}
	if c.Len() != 6 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestParseCatalogRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"schema: missing block", `
version: "1.0"
biomes:
  - {name: ocean, role: ocean, frequency: 0.1, amplitude: 0.1, midpoint: 40}
  - {name: a, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: grass}
  - {name: river, role: river, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: water}
`},
		{"schema: unknown field", `
version: "1.0"
height: 3
biomes: []
`},
		{"version too new", `
version: "2.1"
biomes:
  - {name: ocean, role: ocean, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: water, water: true}
  - {name: a, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: grass}
  - {name: river, role: river, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: water, water: true}
`},
		{"unknown block name", `
version: "1.0"
biomes:
  - {name: ocean, role: ocean, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: lava}
  - {name: a, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: grass}
  - {name: river, role: river, frequency: 0.1, amplitude: 0.1, midpoint: 40, block: water}
`},
	}
	for _, tt := range tests {
		if _, err := ParseCatalog([]byte(tt.doc)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
