package noise

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

type openSimplexSource struct {
	n opensimplex.Noise32
}

func newOpenSimplex(seed int64) *openSimplexSource {
	return &openSimplexSource{n: opensimplex.New32(seed)}
}

func (s *openSimplexSource) Noise2D(x, y float32) float32 {
	return clamp(s.n.Eval2(x, y))
}

func (s *openSimplexSource) Noise3D(x, y, z float32) float32 {
	return clamp(s.n.Eval3(x, y, z))
}

// Perlin parameters: alpha weights successive octaves, beta is the
// frequency multiplier, n the number of internal octaves.
const (
	perlinAlpha   = 2
	perlinBeta    = 2
	perlinOctaves = 3
)

type perlinSource struct {
	p *perlin.Perlin
}

func newPerlin(seed int64) *perlinSource {
	return &perlinSource{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}
}

func (s *perlinSource) Noise2D(x, y float32) float32 {
	return clamp(float32(s.p.Noise2D(float64(x), float64(y))))
}

func (s *perlinSource) Noise3D(x, y, z float32) float32 {
	return clamp(float32(s.p.Noise3D(float64(x), float64(y), float64(z))))
}
