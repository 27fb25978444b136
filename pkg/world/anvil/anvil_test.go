package anvil

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/worldgen/internal/wire"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
	"github.com/OCharnyshevich/worldgen/pkg/world/chunk"
	"github.com/OCharnyshevich/worldgen/pkg/world/density"
	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

var allCompressions = []Compression{CompressionGzip, CompressionZlib, CompressionNone, CompressionZstd, CompressionXZ}

// layered builds a region with stone below y=10, a grass layer and air
// above, and a striped biome map.
func layered(pos region.Pos, dim int) *region.Region {
	r := &region.Region{
		Seed:   -77,
		Pos:    pos,
		Dim:    dim,
		Blocks: make([]block.ID, dim*dim*dim),
		Biomes: make([]biome.ID, dim*dim),
	}
	for x := 0; x < dim; x++ {
		for z := 0; z < dim; z++ {
			for y := 0; y < 10; y++ {
				r.Blocks[density.Index(dim, x, y, z)] = block.Stone
			}
			r.Blocks[density.Index(dim, x, 10, z)] = block.Grass
			r.Biomes[z*dim+x] = biome.ID(x % 6)
		}
	}
	r.Blocks[density.Index(dim, dim-1, dim-1, dim-1)] = block.Water
	return r
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := layered(region.Pos{X: -2, Y: 0, Z: 7}, 32)
	for _, c := range allCompressions {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, want, c); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if buf.Len()%SectorSize != 0 {
				t.Errorf("file is %d bytes, not sector aligned", buf.Len())
			}
			got, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Pos != want.Pos || got.Dim != want.Dim {
				t.Fatalf("decoded %s dim %d, want %s dim %d", got.Pos, got.Dim, want.Pos, want.Dim)
			}
			if d := region.Diff(want, got); d != 0 {
				t.Fatalf("%d cells differ after round trip", d)
			}
		})
	}
}

func TestGeneratedRegionRoundTrip(t *testing.T) {
	g := region.NewGenerator(biome.DefaultCatalog(), nil)
	g.Density.Dim = 32
	want, err := g.Generate(context.Background(), 4, region.Pos{X: 1, Y: 1, Z: -1})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, want, CompressionZstd); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Digest() != want.Digest() {
		t.Fatal("digest changed after round trip")
	}
}

func TestReaderRandomAccess(t *testing.T) {
	r := layered(region.Pos{}, 32)
	var buf bytes.Buffer
	if err := Encode(&buf, r, CompressionZlib); err != nil {
		t.Fatal(err)
	}
	rd, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if rd.Dim != 32 || rd.Compression != CompressionZlib || rd.Seed != -77 {
		t.Fatalf("reader dim %d compression %s seed %d", rd.Dim, rd.Compression, rd.Seed)
	}

	low, err := rd.Chunk(chunk.Pos{X: 1, Y: 0, Z: 0})
	if err != nil {
		t.Fatal(err)
	}
	if low.Get(3, 9, 3) != block.Stone || low.Get(3, 10, 3) != block.Grass || low.Get(3, 11, 3) != block.Air {
		t.Error("low chunk does not hold the layers")
	}

	// The chunk above the grass is all air and stored without a payload.
	slot, _ := rd.slot(chunk.Pos{X: 0, Y: 1, Z: 0})
	if rd.locations[slot] != 0 {
		t.Errorf("air chunk has location %x", rd.locations[slot])
	}
	air, err := rd.Chunk(chunk.Pos{X: 0, Y: 1, Z: 0})
	if err != nil {
		t.Fatal(err)
	}
	if !air.Empty() {
		t.Error("payload-less chunk is not air")
	}

	if _, err := rd.Chunk(chunk.Pos{X: 2}); err == nil {
		t.Error("chunk outside the region accepted")
	}
}

func TestSaveLoadRegion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "regions")
	want := layered(region.Pos{X: 3, Y: -1, Z: 0}, 16)

	path, err := SaveRegion(dir, want, CompressionXZ)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "r.3.-1.0.vxr") {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}

	got, err := LoadRegion(dir, want.Pos)
	if err != nil {
		t.Fatal(err)
	}
	if d := region.Diff(want, got); d != 0 {
		t.Fatalf("%d cells differ", d)
	}

	if _, err := LoadRegion(dir, region.Pos{X: 9}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing region: err = %v, want os.ErrNotExist", err)
	}

	// A file renamed to another position is rejected.
	if err := os.Rename(path, Path(dir, region.Pos{X: 4})); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegion(dir, region.Pos{X: 4}); !errors.Is(err, ErrBadFile) {
		t.Errorf("misplaced file: err = %v, want ErrBadFile", err)
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, layered(region.Pos{}, 16), CompressionZlib); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	mutate := func(fn func(b []byte) []byte) []byte {
		return fn(append([]byte(nil), valid...))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"bad version", mutate(func(b []byte) []byte { b[4] = 9; return b })},
		{"bad dim", mutate(func(b []byte) []byte { b[7] = 17; return b })},
		{"location inside header", mutate(func(b []byte) []byte {
			copy(b[headerSize:], []byte{0, 0, 0, 1})
			return b
		})},
		{"truncated payload", valid[:len(valid)-SectorSize]},
		{"garbled payload", mutate(func(b []byte) []byte {
			off := tableSectors(16) * SectorSize
			for i := off + 5; i < off+20; i++ {
				b[i] ^= 0xFF
			}
			return b
		})},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.data); !errors.Is(err, ErrBadFile) {
			t.Errorf("%s: err = %v, want ErrBadFile", tt.name, err)
		}
	}
}

// worstChunk holds every block type in a pattern that defeats run-length
// style compression.
func worstChunk() *chunk.Chunk {
	c := chunk.New()
	for i := 0; i < chunk.Volume; i++ {
		x, y, z := i%16, i/256, (i/16)%16
		c.Set(x, y, z, block.ID((i*7+i/3)%block.Count))
	}
	return c
}

func TestLargestRegionFitsUncompressed(t *testing.T) {
	raw, err := worstChunk().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	chunkSectors := sectorsFor(len(raw))
	if chunkSectors > maxSectors {
		t.Fatalf("worst chunk needs %d sectors", chunkSectors)
	}

	var column bytes.Buffer
	if _, err := wire.WriteByteArray(&column, make([]byte, columnBiomes)); err != nil {
		t.Fatal(err)
	}
	biomeSectors := sectorsFor(column.Len())
	if biomeSectors > maxSectors {
		t.Fatalf("biome column needs %d sectors", biomeSectors)
	}

	n := chunksPerSide(maxDim)
	last := tableSectors(maxDim) + chunkSlots(maxDim)*chunkSectors + n*n*biomeSectors
	if last > maxOffset {
		t.Fatalf("a full %d region ends at sector %d, beyond %d", maxDim, last, maxOffset)
	}
}

func TestBiomesStoredPerColumn(t *testing.T) {
	want := layered(region.Pos{Z: 1}, 64)
	for i := range want.Biomes {
		want.Biomes[i] = biome.ID(i % 6)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, want, CompressionNone); err != nil {
		t.Fatal(err)
	}
	rd, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	for slot := chunkSlots(64); slot < slotCount(64); slot++ {
		if rd.locations[slot]&0xFF != 1 {
			t.Errorf("biome slot %d uses %d sectors, want 1", slot, rd.locations[slot]&0xFF)
		}
	}
	got, err := rd.Region()
	if err != nil {
		t.Fatal(err)
	}
	if d := region.Diff(want, got); d != 0 {
		t.Fatalf("%d cells differ", d)
	}
}

func TestEncodeRejectsUnalignedDim(t *testing.T) {
	r := &region.Region{Dim: 20, Blocks: make([]block.ID, 8000), Biomes: make([]biome.ID, 400)}
	if err := Encode(&bytes.Buffer{}, r, CompressionNone); err == nil {
		t.Fatal("unaligned region encoded")
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range allCompressions {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %s, %v", c.String(), got, err)
		}
	}
	if got, err := ParseCompression(""); err != nil || got != CompressionZlib {
		t.Errorf("default compression = %s, %v", got, err)
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Error("unknown compression accepted")
	}
}
