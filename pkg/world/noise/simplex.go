package noise

// SimplexSource is a self-contained simplex noise implementation seeded
// through a shuffled permutation table. Output is in [-1, 1].
type SimplexSource struct {
	perm [512]uint8
}

var grad3 = [12][3]float32{
	{1, 1, 0},
	{-1, 1, 0},
	{1, -1, 0},
	{-1, -1, 0},
	{1, 0, 1},
	{-1, 0, 1},
	{1, 0, -1},
	{-1, 0, -1},
	{0, 1, 1},
	{0, -1, 1},
	{0, 1, -1},
	{0, -1, -1},
}

// NewSimplex builds the permutation table for seed.
func NewSimplex(seed int64) *SimplexSource {
	s := &SimplexSource{}

	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}

	// Fisher-Yates driven by a 64-bit LCG.
	state := uint64(seed)
	for i := 255; i > 0; i-- {
		state = state*6364136223846793005 + 1442695040888963407
		j := int((state >> 33) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}

	for i := range s.perm {
		s.perm[i] = p[i&255]
	}
	return s
}

func (s *SimplexSource) hash(i int) int {
	return int(s.perm[i&511])
}

// Noise2D returns 2D simplex noise.
func (s *SimplexSource) Noise2D(x, y float32) float32 {
	const (
		f2 = 0.36602540378443864676 // (sqrt(3) - 1) / 2
		g2 = 0.21132486540518711775 // (3 - sqrt(3)) / 6
	)

	sk := (x + y) * f2
	i := fastFloor(x + sk)
	j := fastFloor(y + sk)

	t := float32(i+j) * g2
	x0 := x - (float32(i) - t)
	y0 := y - (float32(j) - t)

	var i1, j1 int
	if x0 > y0 {
		i1 = 1
	} else {
		j1 = 1
	}

	x1 := x0 - float32(i1) + g2
	y1 := y0 - float32(j1) + g2
	x2 := x0 - 1 + 2*g2
	y2 := y0 - 1 + 2*g2

	ii := i & 255
	jj := j & 255
	gi0 := s.hash(ii+s.hash(jj)) % 12
	gi1 := s.hash(ii+i1+s.hash(jj+j1)) % 12
	gi2 := s.hash(ii+1+s.hash(jj+1)) % 12

	var n0, n1, n2 float32

	if t0 := 0.5 - x0*x0 - y0*y0; t0 >= 0 {
		t0 *= t0
		n0 = t0 * t0 * dot2(grad3[gi0], x0, y0)
	}
	if t1 := 0.5 - x1*x1 - y1*y1; t1 >= 0 {
		t1 *= t1
		n1 = t1 * t1 * dot2(grad3[gi1], x1, y1)
	}
	if t2 := 0.5 - x2*x2 - y2*y2; t2 >= 0 {
		t2 *= t2
		n2 = t2 * t2 * dot2(grad3[gi2], x2, y2)
	}

	return clamp(70 * (n0 + n1 + n2))
}

// Noise3D returns 3D simplex noise.
func (s *SimplexSource) Noise3D(x, y, z float32) float32 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)

	sk := (x + y + z) * f3
	i := fastFloor(x + sk)
	j := fastFloor(y + sk)
	k := fastFloor(z + sk)

	t := float32(i+j+k) * g3
	x0 := x - (float32(i) - t)
	y0 := y - (float32(j) - t)
	z0 := z - (float32(k) - t)

	var i1, j1, k1, i2, j2, k2 int
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
		case x0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
		case x0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
		}
	}

	x1 := x0 - float32(i1) + g3
	y1 := y0 - float32(j1) + g3
	z1 := z0 - float32(k1) + g3
	x2 := x0 - float32(i2) + 2*g3
	y2 := y0 - float32(j2) + 2*g3
	z2 := z0 - float32(k2) + 2*g3
	x3 := x0 - 1 + 3*g3
	y3 := y0 - 1 + 3*g3
	z3 := z0 - 1 + 3*g3

	ii := i & 255
	jj := j & 255
	kk := k & 255
	gi0 := s.hash(ii+s.hash(jj+s.hash(kk))) % 12
	gi1 := s.hash(ii+i1+s.hash(jj+j1+s.hash(kk+k1))) % 12
	gi2 := s.hash(ii+i2+s.hash(jj+j2+s.hash(kk+k2))) % 12
	gi3 := s.hash(ii+1+s.hash(jj+1+s.hash(kk+1))) % 12

	var n0, n1, n2, n3 float32

	if t0 := 0.6 - x0*x0 - y0*y0 - z0*z0; t0 >= 0 {
		t0 *= t0
		n0 = t0 * t0 * dot3(grad3[gi0], x0, y0, z0)
	}
	if t1 := 0.6 - x1*x1 - y1*y1 - z1*z1; t1 >= 0 {
		t1 *= t1
		n1 = t1 * t1 * dot3(grad3[gi1], x1, y1, z1)
	}
	if t2 := 0.6 - x2*x2 - y2*y2 - z2*z2; t2 >= 0 {
		t2 *= t2
		n2 = t2 * t2 * dot3(grad3[gi2], x2, y2, z2)
	}
	if t3 := 0.6 - x3*x3 - y3*y3 - z3*z3; t3 >= 0 {
		t3 *= t3
		n3 = t3 * t3 * dot3(grad3[gi3], x3, y3, z3)
	}

	return clamp(32 * (n0 + n1 + n2 + n3))
}

func fastFloor(x float32) int {
	xi := int(x)
	if x < float32(xi) {
		return xi - 1
	}
	return xi
}

func dot2(g [3]float32, x, y float32) float32 {
	return g[0]*x + g[1]*y
}

func dot3(g [3]float32, x, y, z float32) float32 {
	return g[0]*x + g[1]*y + g[2]*z
}
