package density

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/biomegrid"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
	"github.com/OCharnyshevich/worldgen/pkg/world/coord"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

func TestWeight(t *testing.T) {
	if got := Weight(0, 0); got != 10 {
		t.Errorf("Weight(0,0) = %v, want 10", got)
	}
	want := float32(10 / (math.Sqrt(98) + 1))
	if got := Weight(7, -7); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("Weight(7,-7) = %v, want %v", got, want)
	}
	if got := Weight(8, 0); got != 0 {
		t.Errorf("Weight(8,0) = %v, want 0", got)
	}
	if Weight(1, 0) != Weight(0, -1) || Weight(3, 4) != Weight(-4, 3) {
		t.Error("weights are not symmetric")
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		dim, x, y, z, want int
	}{
		{16, 0, 0, 0, 0},
		{16, 0, 1, 0, 1},
		{16, 0, 0, 1, 16},
		{16, 1, 0, 0, 256},
		{16, 1, 2, 3, 306},
		{256, 255, 255, 255, 256*256*256 - 1},
	}
	for _, tt := range tests {
		if got := Index(tt.dim, tt.x, tt.y, tt.z); got != tt.want {
			t.Errorf("Index(%d, %d,%d,%d) = %d, want %d", tt.dim, tt.x, tt.y, tt.z, got, tt.want)
		}
	}
}

func TestGradient(t *testing.T) {
	if got := Gradient(65, 64, 0.5); got != 1 {
		t.Errorf("above midpoint: %v, want 1", got)
	}
	if got := Gradient(61, 64, 0.5); got != -4 {
		t.Errorf("below midpoint: %v, want -4 (steepened)", got)
	}
	if got := Gradient(63, 64, 0.5); got != 0 {
		t.Errorf("at midpoint-1: %v, want 0", got)
	}
}

func TestBlendUniformMatchesCatalog(t *testing.T) {
	cat := biome.DefaultCatalog()
	b := NewBlender(cat)

	for _, id := range []biome.ID{biome.Plains, biome.Hills, biome.Desert, biome.Forest, biome.Ocean} {
		grid := biomegrid.Uniform(biomegrid.Rect{X: -10, Z: -10, Width: 20, Height: 20}, id)
		p, err := b.Column(grid, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		d := cat.MustLookup(id)
		if p.Amplitude != d.Amplitude || p.Midpoint != d.Midpoint {
			t.Errorf("%s: amplitude %v midpoint %v, want %v %v", d.Name, p.Amplitude, p.Midpoint, d.Amplitude, d.Midpoint)
		}
		if p.Frequency != d.Frequency || p.Block != d.Block || p.Water != d.Water {
			t.Errorf("%s: params %+v do not match %+v", d.Name, p, d)
		}
	}
}

func TestBlendWeightedMean(t *testing.T) {
	cat := biome.DefaultCatalog()
	grid := biomegrid.Uniform(biomegrid.Rect{Width: 15, Height: 15}, biome.Plains)
	for z := 0; z < 15; z++ {
		for x := 8; x < 15; x++ {
			grid.Set(x, z, biome.Hills)
		}
	}

	p, err := NewBlender(cat).Column(grid, 7, 7)
	if err != nil {
		t.Fatal(err)
	}
	plains, hills := cat.MustLookup(biome.Plains), cat.MustLookup(biome.Hills)
	if !(p.Amplitude < plains.Amplitude && p.Amplitude > hills.Amplitude) {
		t.Errorf("amplitude %v not between %v and %v", p.Amplitude, hills.Amplitude, plains.Amplitude)
	}
	if !(p.Midpoint > plains.Midpoint && p.Midpoint < hills.Midpoint) {
		t.Errorf("midpoint %v not between %v and %v", p.Midpoint, plains.Midpoint, hills.Midpoint)
	}
	if p.Frequency != plains.Frequency || p.Block != plains.Block {
		t.Errorf("centre params = %v/%v, want plains", p.Frequency, p.Block)
	}
}

func TestBlendReplacement(t *testing.T) {
	cat := biome.DefaultCatalog()
	b := NewBlender(cat)
	r := biomegrid.Rect{X: -7, Z: -7, Width: 15, Height: 15}

	tests := []struct {
		name  string
		cells map[[2]int]biome.ID // world offsets from the column
		want  block.ID
	}{
		{"all water", nil, block.Water},
		{"single neighbour", map[[2]int]biome.ID{{3, -2}: biome.Desert}, block.Sand},
		{"nearest wins", map[[2]int]biome.ID{{0, 2}: biome.Forest, {1, 1}: biome.Desert}, block.Sand},
		{"tie goes to first index", map[[2]int]biome.ID{{2, 0}: biome.Desert, {-2, 0}: biome.Forest}, block.Melium},
		{"rivers are water", map[[2]int]biome.ID{{1, 0}: biome.River, {4, 0}: biome.Hills}, block.Stone},
	}
	for _, tt := range tests {
		grid := biomegrid.Uniform(r, biome.Ocean)
		for off, id := range tt.cells {
			grid.Set(off[0]+7, off[1]+7, id)
		}
		p, err := b.Column(grid, 0, 0)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !p.Water || p.Block != block.Water {
			t.Fatalf("%s: centre is not water: %+v", tt.name, p)
		}
		if p.Replacement != tt.want {
			t.Errorf("%s: replacement = %s, want %s", tt.name, p.Replacement, tt.want)
		}
	}
}

func TestBlendMissingHalo(t *testing.T) {
	b := NewBlender(biome.DefaultCatalog())
	grid := biomegrid.Uniform(biomegrid.Rect{Width: 15, Height: 15}, biome.Plains)

	if _, err := b.Column(grid, 7, 7); err != nil {
		t.Fatalf("centred column: %v", err)
	}
	for _, c := range [][2]int{{6, 7}, {8, 7}, {7, 6}, {7, 8}} {
		if _, err := b.Column(grid, c[0], c[1]); !errors.Is(err, biomegrid.ErrMissingHalo) {
			t.Errorf("column %v: err = %v, want ErrMissingHalo", c, err)
		}
	}
}

func TestBlendInvalidBiome(t *testing.T) {
	b := NewBlender(biome.DefaultCatalog())
	grid := biomegrid.Uniform(biomegrid.Rect{Width: 15, Height: 15}, biome.Plains)
	grid.Set(0, 14, biome.ID(42))

	if _, err := b.Column(grid, 7, 7); !errors.Is(err, biome.ErrInvalidBiomeID) {
		t.Fatalf("err = %v, want ErrInvalidBiomeID", err)
	}
}

func TestBlendDegenerateWeightSum(t *testing.T) {
	b := NewBlender(biome.DefaultCatalog())
	grid := biomegrid.Uniform(biomegrid.Rect{Width: 15, Height: 15}, biome.Plains)

	b.kernel = &kernel{}
	if _, err := b.Column(grid, 7, 7); !errors.Is(err, ErrDegenerateWeightSum) {
		t.Fatalf("zero weights: err = %v, want ErrDegenerateWeightSum", err)
	}

	k := *window
	for i := range k.weight {
		k.weight[i] = -k.weight[i]
	}
	b.kernel = &k
	if _, err := b.Column(grid, 7, 7); !errors.Is(err, ErrDegenerateWeightSum) {
		t.Fatalf("negative weights: err = %v, want ErrDegenerateWeightSum", err)
	}
}

func newTestGenerator(cat *biome.Catalog, dim int) *Generator {
	g := NewGenerator(cat, nil)
	g.Dim = dim
	return g
}

func TestGenerateAirAboveGradient(t *testing.T) {
	cat := biome.DefaultCatalog()
	g := newTestGenerator(cat, 32)
	origin := coord.Pos{X: 100, Y: 64, Z: -40}
	grid := biomegrid.Uniform(g.Required(origin), biome.Plains)

	blocks, err := g.Generate(context.Background(), 3, origin, grid)
	if err != nil {
		t.Fatal(err)
	}

	// Plains: midpoint 66, amplitude 0.06. The gradient reaches 1 at
	// y = 65 + 1/0.06 < 82 and is negative below 65.
	for x := 0; x < g.Dim; x++ {
		for z := 0; z < g.Dim; z++ {
			for y := 0; y < g.Dim; y++ {
				wy := origin.Y + y
				got := blocks[Index(g.Dim, x, y, z)]
				switch {
				case wy >= 82 && got != block.Air:
					t.Fatalf("(%d,%d,%d) = %s above terrain bound", x, wy, z, got)
				case wy < 65 && got != block.Grass:
					t.Fatalf("(%d,%d,%d) = %s below midpoint, want grass", x, wy, z, got)
				case got != block.Air && got != block.Grass:
					t.Fatalf("(%d,%d,%d) = %s, want air or grass", x, wy, z, got)
				}
			}
		}
	}
}

func waterCatalog(t *testing.T) *biome.Catalog {
	t.Helper()
	cat, err := biome.NewCatalog([]biome.Definition{
		{Name: "sea", Role: biome.RoleOcean, Frequency: 0.01, Amplitude: 0.05, Midpoint: 100, Block: block.Water, Water: true},
		{Name: "dunes", Frequency: 0.01, Amplitude: 0.05, Midpoint: 100, Block: block.Sand},
		{Name: "stream", Role: biome.RoleRiver, Frequency: 0.01, Amplitude: 0.05, Midpoint: 100, Block: block.Water, Water: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestGenerateWaterReplacement(t *testing.T) {
	cat := waterCatalog(t)
	g := newTestGenerator(cat, 16)
	origin := coord.Pos{X: 0, Y: 56, Z: 0}
	grid := biomegrid.Uniform(g.Required(origin), 0)
	// A single dry cell just west of column (0, 8).
	grid.Set(-1-grid.X, 8-grid.Z, 1)

	blocks, err := g.Generate(context.Background(), 11, origin, grid)
	if err != nil {
		t.Fatal(err)
	}

	// Every voxel here is far below the midpoint and therefore solid.
	for y := 0; y < g.Dim; y++ {
		wy := origin.Y + y
		want := block.Water
		if wy >= SeaLevel {
			want = block.Sand
		}
		if got := blocks[Index(g.Dim, 0, y, 8)]; got != want {
			t.Errorf("column (0,8) y=%d: %s, want %s", wy, got, want)
		}
		// Column (0,0) sees no dry sample in its window.
		if got := blocks[Index(g.Dim, 0, y, 0)]; got != block.Water {
			t.Errorf("column (0,0) y=%d: %s, want water", wy, got)
		}
	}
}

func mixedGrid(r biomegrid.Rect) *biomegrid.Grid {
	grid := biomegrid.NewGrid(r)
	for i := range grid.Cells {
		x, z := i%r.Width, i/r.Width
		grid.Cells[i] = biome.ID((x/5 + z/7) % 6)
	}
	return grid
}

func TestGenerateReplayAndWorkers(t *testing.T) {
	for _, backend := range noise.Backends {
		t.Run(string(backend), func(t *testing.T) {
			cat := biome.DefaultCatalog()
			origin := coord.Pos{X: -16, Y: 48, Z: 32}

			serial := newTestGenerator(cat, 32)
			serial.Backend = backend
			serial.Workers = 1
			wide := newTestGenerator(cat, 32)
			wide.Backend = backend
			wide.Workers = 8

			grid := mixedGrid(serial.Required(origin))
			a, err := serial.Generate(context.Background(), 1234, origin, grid)
			if err != nil {
				t.Fatal(err)
			}
			b, err := wide.Generate(context.Background(), 1234, origin, grid)
			if err != nil {
				t.Fatal(err)
			}
			c, err := wide.Generate(context.Background(), 1234, origin, grid)
			if err != nil {
				t.Fatal(err)
			}

			diffs := 0
			for i := range a {
				if a[i] != b[i] || b[i] != c[i] {
					diffs++
				}
			}
			if diffs != 0 {
				t.Fatalf("%d voxels differ between runs", diffs)
			}
		})
	}
}

func TestGenerateSeedsDiffer(t *testing.T) {
	cat := biome.DefaultCatalog()
	g := newTestGenerator(cat, 32)
	origin := coord.Pos{Y: 56}
	grid := mixedGrid(g.Required(origin))

	a, err := g.Generate(context.Background(), 1, origin, grid)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Generate(context.Background(), 2, origin, grid)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			return
		}
	}
	t.Fatal("different seeds produced identical regions")
}

func TestGenerateErrors(t *testing.T) {
	cat := biome.DefaultCatalog()
	g := newTestGenerator(cat, 16)
	origin := coord.Pos{X: 16, Z: 16}

	exact := biomegrid.Uniform(biomegrid.Rect{X: 16, Z: 16, Width: 16, Height: 16}, biome.Plains)
	if _, err := g.Generate(context.Background(), 1, origin, exact); !errors.Is(err, biomegrid.ErrMissingHalo) {
		t.Errorf("grid without halo: err = %v, want ErrMissingHalo", err)
	}

	bad := biomegrid.Uniform(g.Required(origin), biome.Plains)
	bad.Cells[len(bad.Cells)/2] = 200
	if _, err := g.Generate(context.Background(), 1, origin, bad); !errors.Is(err, biome.ErrInvalidBiomeID) {
		t.Errorf("bad biome: err = %v, want ErrInvalidBiomeID", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := biomegrid.Uniform(g.Required(origin), biome.Plains)
	if _, err := g.Generate(ctx, 1, origin, ok); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v, want context.Canceled", err)
	}

	zero := newTestGenerator(cat, 0)
	if _, err := zero.Generate(context.Background(), 1, origin, ok); err == nil {
		t.Error("zero dim accepted")
	}
}
