package block

import (
	"fmt"
	"strings"
)

// ID identifies a voxel's material. 0 is always air.
type ID uint16

// Block IDs understood by the generator. The order is part of the region
// storage format and must not change.
const (
	Air ID = iota
	Stone
	Dirt
	Grass
	Sand
	Melium
	Water
)

// Count is the number of registered blocks.
const Count = int(Water) + 1

var names = [Count]string{
	Air:    "air",
	Stone:  "stone",
	Dirt:   "dirt",
	Grass:  "grass",
	Sand:   "sand",
	Melium: "melium",
	Water:  "water",
}

// Valid reports whether id is a registered block.
func (id ID) Valid() bool {
	return int(id) < Count
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("block(%d)", uint16(id))
	}
	return names[id]
}

// Parse resolves a block name (case-insensitive) to its ID.
func Parse(name string) (ID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return ID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown block %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown block id %d", uint16(id))
	}
	return []byte(names[id]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
