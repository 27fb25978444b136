// Package biomegrid builds 2D biome grids by chaining resolution-changing
// passes over a coarse land/ocean mask.
//
// Grids live on a level: level coordinates at the final level are block
// columns, and every Zoom pass doubles the resolution of the level below.
// A Grid is anchored at its level coordinate (X, Z) and never mutated
// after the pass that produced it returns.
package biomegrid

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
)

// ErrMissingHalo is returned when a grid does not cover the cells a pass or
// consumer needs. It indicates a pipeline configuration bug.
var ErrMissingHalo = errors.New("biome grid missing halo")

// Rect is an axis-aligned area of a level, origin inclusive.
type Rect struct {
	X, Z          int
	Width, Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Z, r.Width, r.Height)
}

// Grow expands r by n cells on every side.
func (r Rect) Grow(n int) Rect {
	return Rect{X: r.X - n, Z: r.Z - n, Width: r.Width + 2*n, Height: r.Height + 2*n}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Z >= r.Z &&
		o.X+o.Width <= r.X+r.Width &&
		o.Z+o.Height <= r.Z+r.Height
}

// Empty reports whether r has no cells.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Grid is a row-major array of biome IDs: Cells[z*Width+x].
type Grid struct {
	Rect
	Cells []biome.ID
}

// NewGrid allocates a grid covering r.
func NewGrid(r Rect) *Grid {
	if r.Empty() {
		return &Grid{Rect: r}
	}
	return &Grid{Rect: r, Cells: make([]biome.ID, r.Width*r.Height)}
}

// Uniform returns a grid covering r filled with id.
func Uniform(r Rect, id biome.ID) *Grid {
	g := NewGrid(r)
	for i := range g.Cells {
		g.Cells[i] = id
	}
	return g
}

// At returns the cell at local coordinates.
func (g *Grid) At(x, z int) biome.ID {
	return g.Cells[z*g.Width+x]
}

// Set writes the cell at local coordinates.
func (g *Grid) Set(x, z int, id biome.ID) {
	g.Cells[z*g.Width+x] = id
}

// AtWorld returns the cell at level coordinates.
func (g *Grid) AtWorld(x, z int) (biome.ID, bool) {
	lx, lz := x-g.X, z-g.Z
	if lx < 0 || lz < 0 || lx >= g.Width || lz >= g.Height {
		return 0, false
	}
	return g.Cells[lz*g.Width+lx], true
}

// Crop returns the part of g covering r. When r equals g's own area g is
// returned as is.
func (g *Grid) Crop(r Rect) (*Grid, error) {
	if r == g.Rect {
		return g, nil
	}
	if r.Empty() || !g.Contains(r) {
		return nil, fmt.Errorf("%w: grid %s does not cover %s", ErrMissingHalo, g.Rect, r)
	}
	out := NewGrid(r)
	dx, dz := r.X-g.X, r.Z-g.Z
	for z := 0; z < r.Height; z++ {
		src := (z+dz)*g.Width + dx
		copy(out.Cells[z*r.Width:(z+1)*r.Width], g.Cells[src:src+r.Width])
	}
	return out, nil
}

// Validate checks every cell against cat.
func (g *Grid) Validate(cat *biome.Catalog) error {
	for i, id := range g.Cells {
		if !cat.Valid(id) {
			return fmt.Errorf("%w: %d at (%d,%d)", biome.ErrInvalidBiomeID, id, g.X+i%g.Width, g.Z+i/g.Width)
		}
	}
	return nil
}

// Equal reports whether two grids cover the same area with the same cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.Rect != o.Rect || len(g.Cells) != len(o.Cells) {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}
