package biome

import "github.com/OCharnyshevich/worldgen/pkg/world/block"

// Default biome IDs. They match the order of DefaultDefinitions.
const (
	Ocean ID = iota
	Plains
	Hills
	Desert
	Forest
	River
)

// DefaultDefinitions is the built-in biome table.
//
// Amplitude scales the height gradient: terrain cannot rise more than
// 1/amplitude blocks above the midpoint, so smaller values make taller land.
func DefaultDefinitions() []Definition {
	return []Definition{
		Ocean:  {Name: "ocean", Role: RoleOcean, Frequency: 0.010, Amplitude: 0.08, Midpoint: 48, Block: block.Water, Water: true, Color: [3]uint8{40, 80, 200}},
		Plains: {Name: "plains", Frequency: 0.008, Amplitude: 0.06, Midpoint: 66, Block: block.Grass, Color: [3]uint8{40, 200, 80}},
		Hills:  {Name: "hills", Frequency: 0.015, Amplitude: 0.02, Midpoint: 74, Block: block.Stone, Color: [3]uint8{140, 80, 80}},
		Desert: {Name: "desert", Frequency: 0.006, Amplitude: 0.08, Midpoint: 66, Block: block.Sand, Color: [3]uint8{200, 180, 20}},
		Forest: {Name: "forest", Frequency: 0.010, Amplitude: 0.05, Midpoint: 68, Block: block.Melium, Color: [3]uint8{40, 140, 20}},
		River:  {Name: "river", Role: RoleRiver, Frequency: 0.010, Amplitude: 0.10, Midpoint: 58, Block: block.Water, Water: true, Color: [3]uint8{40, 40, 160}},
	}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		panic("biome: invalid default catalog: " + err.Error())
	}
	return c
}
