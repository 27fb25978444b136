// Package coord holds integer world positions.
package coord

import "fmt"

// Pos is a world-space block position.
type Pos struct {
	X, Y, Z int
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Scale multiplies every component by n.
func (p Pos) Scale(n int) Pos {
	return Pos{X: p.X * n, Y: p.Y * n, Z: p.Z * n}
}
