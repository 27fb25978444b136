// Package density turns a biome grid into the blocks of a cubic region.
//
// For every column the biome parameters of a 15x15 neighbourhood are
// blended by inverse distance. Every voxel then combines layered 3D noise
// with a vertical gradient around the blended midpoint; a negative density
// is solid.
package density

import (
	"errors"
	"math"
)

const (
	// SeaLevel is the world Y from which water columns take their
	// replacement block.
	SeaLevel = 64

	// Radius is the halo a biome grid needs around every column.
	Radius = 7
	// WindowSize is the side of the blending window.
	WindowSize = 2*Radius + 1
	// WindowSamples is the number of biome samples blended per column.
	WindowSamples = WindowSize * WindowSize

	// DefaultDim is the side of a region in blocks.
	DefaultDim = 256

	Octaves    = 2
	Lacunarity = 2.0
	Gain       = 0.5

	// ChoiceFrequency is the frequency of the field that blends the two
	// terrain fields.
	ChoiceFrequency = 0.005

	// FieldOffset separates the second terrain field from the first on Y.
	FieldOffset = 1000

	// BelowMidpointScale steepens the gradient under the midpoint.
	BelowMidpointScale = 4
)

// ErrDegenerateWeightSum is returned when a blending window sums to a
// non-positive weight.
var ErrDegenerateWeightSum = errors.New("degenerate weight sum")

// kernel holds the distance and weight of every window sample. Sample i
// sits at dx = i%WindowSize-Radius, dz = i/WindowSize-Radius.
type kernel struct {
	dist   [WindowSamples]float32
	weight [WindowSamples]float32
}

var window = newKernel()

func newKernel() *kernel {
	k := &kernel{}
	for i := range WindowSamples {
		dx := float64(i%WindowSize - Radius)
		dz := float64(i/WindowSize - Radius)
		d := float32(math.Sqrt(dx*dx + dz*dz))
		k.dist[i] = d
		k.weight[i] = 10 / (d + 1)
	}
	return k
}

// Weight returns the blending weight of the sample at offset (dx, dz) from
// the column. Offsets outside the window weigh zero.
func Weight(dx, dz int) float32 {
	if dx < -Radius || dx > Radius || dz < -Radius || dz > Radius {
		return 0
	}
	return window.weight[(dz+Radius)*WindowSize+dx+Radius]
}

// Index returns the position of local voxel (x, y, z) in a region buffer
// of side dim. Y varies fastest, then Z, then X.
func Index(dim, x, y, z int) int {
	return x*dim*dim + z*dim + y
}

// Gradient is the vertical density bias at world height y for a column
// with the given midpoint and amplitude. Below the midpoint it falls off
// BelowMidpointScale times faster.
func Gradient(y int, midpoint, amplitude float32) float32 {
	g := float32((float32(y) - midpoint + 1) * amplitude)
	if g < 0 {
		g *= BelowMidpointScale
	}
	return g
}

// Solid reports whether noise n and gradient g give a solid voxel.
func Solid(n, g float32) bool {
	return -abs(n)+g < 0
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
