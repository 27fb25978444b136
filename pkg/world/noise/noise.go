// Package noise provides seeded coherent noise, fractal Brownian motion and
// the coordinate hash used for categorical random choices.
//
// Every Source is immutable once constructed and safe for concurrent use.
// All values are float32; sources clamp their output to [-1, 1] so that
// callers can rely on the bound when reasoning about density signs.
package noise

import "fmt"

// Source evaluates coherent noise for a fixed seed.
type Source interface {
	Noise2D(x, y float32) float32
	Noise3D(x, y, z float32) float32
}

// Backend names a Source implementation.
type Backend string

const (
	OpenSimplex Backend = "opensimplex"
	Simplex     Backend = "simplex"
	Perlin      Backend = "perlin"
)

// Backends lists every supported backend.
var Backends = []Backend{OpenSimplex, Simplex, Perlin}

// ParseBackend validates a backend name. The empty string selects OpenSimplex.
func ParseBackend(name string) (Backend, error) {
	if name == "" {
		return OpenSimplex, nil
	}
	for _, b := range Backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown noise backend %q", name)
}

// New returns the Source for backend seeded with seed.
func New(backend Backend, seed int64) (Source, error) {
	switch backend {
	case OpenSimplex, "":
		return newOpenSimplex(seed), nil
	case Simplex:
		return NewSimplex(seed), nil
	case Perlin:
		return newPerlin(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise backend %q", backend)
	}
}

// FBM3D sums octaves layers of 3D noise. Each layer multiplies frequency by
// lacunarity and amplitude by gain. The sum is divided by the total
// amplitude, so the result stays in [-1, 1]. Products are rounded before
// they are accumulated, which keeps results identical across architectures.
func FBM3D(src Source, x, y, z float32, octaves int, lacunarity, gain float32) float32 {
	var total, maxVal float32
	frequency := float32(1)
	amplitude := float32(1)

	for range octaves {
		total += float32(src.Noise3D(x*frequency, y*frequency, z*frequency) * amplitude)
		maxVal += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}
	if maxVal == 0 {
		return 0
	}
	return clamp(total / maxVal)
}

// FBM2D is the 2D counterpart of FBM3D.
func FBM2D(src Source, x, y float32, octaves int, lacunarity, gain float32) float32 {
	var total, maxVal float32
	frequency := float32(1)
	amplitude := float32(1)

	for range octaves {
		total += float32(src.Noise2D(x*frequency, y*frequency) * amplitude)
		maxVal += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}
	if maxVal == 0 {
		return 0
	}
	return clamp(total / maxVal)
}

// Lerp interpolates linearly between a and b. The explicit conversion
// keeps the product rounded so no platform fuses it into a multiply-add.
func Lerp(a, b, t float32) float32 {
	return a + float32((b-a)*t)
}

func clamp(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
