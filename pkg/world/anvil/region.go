// Package anvil stores regions in sector-aligned files.
//
// A file starts with a fixed header and a location table, padded to a
// sector boundary. The table has one entry per chunk followed by one entry
// per chunk column holding that column's biomes. Each payload is a 4-byte
// length, a compression byte and the compressed bytes, padded to whole
// sectors. All-air chunks have no payload.
package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/worldgen/internal/wire"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/chunk"
	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

const (
	SectorSize = 512
	// headerSize: magic, version, compression, dim, region x/y/z, seed.
	headerSize = 4 + 1 + 1 + 2 + 3*4 + 8
	version    = 2
	// A location is sector offset << 8 | sector count.
	maxSectors = 0xFF
	maxOffset  = 1<<24 - 1
	maxDim     = 1024
	// columnBiomes is the number of biome entries in one chunk column.
	columnBiomes = chunk.Dim * chunk.Dim
)

var magic = [4]byte{'V', 'X', 'R', 'G'}

// ErrBadFile is returned for files that do not follow the region format.
var ErrBadFile = errors.New("bad region file")

// Path returns the file name of the region at pos inside dir.
func Path(dir string, pos region.Pos) string {
	return filepath.Join(dir, fmt.Sprintf("r.%d.%d.%d.vxr", pos.X, pos.Y, pos.Z))
}

func chunksPerSide(dim int) int { return dim / chunk.Dim }

func chunkSlots(dim int) int {
	n := chunksPerSide(dim)
	return n * n * n
}

func slotCount(dim int) int {
	n := chunksPerSide(dim)
	return chunkSlots(dim) + n*n
}

func tableSectors(dim int) int {
	return (headerSize + 4*slotCount(dim) + SectorSize - 1) / SectorSize
}

// sectorsFor is the number of sectors a payload of n compressed bytes
// occupies, including its length and compression prefix.
func sectorsFor(n int) int {
	return (4 + 1 + n + SectorSize - 1) / SectorSize
}

// Encode writes r to w with every payload compressed with c.
func Encode(w io.Writer, r *region.Region, c Compression) error {
	if r.Dim > maxDim {
		return fmt.Errorf("region dim %d exceeds %d", r.Dim, maxDim)
	}
	chunks, err := r.Chunks()
	if err != nil {
		return err
	}
	if len(r.Biomes) != r.Dim*r.Dim {
		return fmt.Errorf("region %s: %d biome columns, want %d", r.Pos, len(r.Biomes), r.Dim*r.Dim)
	}
	slots := slotCount(r.Dim)
	locations := make([]byte, 4*slots)
	var data bytes.Buffer
	current := tableSectors(r.Dim)

	put := func(slot int, raw []byte) error {
		compressed, err := compress(c, raw)
		if err != nil {
			return err
		}
		sectorCount := sectorsFor(len(compressed))
		if sectorCount > maxSectors {
			return fmt.Errorf("slot %d needs %d sectors, limit %d", slot, sectorCount, maxSectors)
		}
		if current > maxOffset {
			return fmt.Errorf("slot %d starts at sector %d, limit %d", slot, current, maxOffset)
		}

		binary.BigEndian.PutUint32(locations[slot*4:], uint32(current)<<8|uint32(sectorCount))

		// Payload: length (4 bytes) + compression (1 byte) + data.
		var header [5]byte
		binary.BigEndian.PutUint32(header[0:4], uint32(len(compressed))+1)
		header[4] = byte(c)
		data.Write(header[:])
		data.Write(compressed)

		if pad := sectorCount*SectorSize - 5 - len(compressed); pad > 0 {
			data.Write(make([]byte, pad))
		}
		current += sectorCount
		return nil
	}

	for i, ch := range chunks {
		if ch.Data.Empty() {
			continue
		}
		raw, err := ch.Data.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode %s: %w", ch.Pos, err)
		}
		if err := put(i, raw); err != nil {
			return fmt.Errorf("%s: %w", ch.Pos, err)
		}
	}

	n := chunksPerSide(r.Dim)
	column := make([]byte, columnBiomes)
	for cz := 0; cz < n; cz++ {
		for cx := 0; cx < n; cx++ {
			for z := 0; z < chunk.Dim; z++ {
				for x := 0; x < chunk.Dim; x++ {
					column[z*chunk.Dim+x] = byte(r.Biome(cx*chunk.Dim+x, cz*chunk.Dim+z))
				}
			}
			var raw bytes.Buffer
			if _, err := wire.WriteByteArray(&raw, column); err != nil {
				return err
			}
			if err := put(chunkSlots(r.Dim)+cz*n+cx, raw.Bytes()); err != nil {
				return fmt.Errorf("biomes of column (%d,%d): %w", cx, cz, err)
			}
		}
	}

	var head bytes.Buffer
	head.Grow(tableSectors(r.Dim) * SectorSize)
	head.Write(magic[:])
	head.WriteByte(version)
	head.WriteByte(byte(c))
	binary.Write(&head, binary.BigEndian, uint16(r.Dim))
	for _, v := range []int{r.Pos.X, r.Pos.Y, r.Pos.Z} {
		wire.WriteI32(&head, int32(v))
	}
	wire.WriteU64(&head, uint64(r.Seed))
	head.Write(locations)
	head.Write(make([]byte, tableSectors(r.Dim)*SectorSize-head.Len()))

	if _, err := head.WriteTo(w); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := data.WriteTo(w); err != nil {
		return fmt.Errorf("write payloads: %w", err)
	}
	return nil
}

// Reader gives random access to the chunks of an encoded region.
type Reader struct {
	ra          io.ReaderAt
	Seed        int64
	Pos         region.Pos
	Dim         int
	Compression Compression
	locations   []uint32
}

// NewReader parses the header and location table of an encoded region.
func NewReader(ra io.ReaderAt) (*Reader, error) {
	var head [headerSize]byte
	if _, err := ra.ReadAt(head[:], 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadFile, err)
	}
	if !bytes.Equal(head[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadFile, head[0:4])
	}
	if head[4] != version {
		return nil, fmt.Errorf("%w: version %d", ErrBadFile, head[4])
	}
	dim := int(binary.BigEndian.Uint16(head[6:8]))
	if dim == 0 || dim%chunk.Dim != 0 || dim > maxDim {
		return nil, fmt.Errorf("%w: region dim %d", ErrBadFile, dim)
	}

	hr := bytes.NewReader(head[8:])
	var xyz [3]int32
	for i := range xyz {
		xyz[i], _ = wire.ReadI32(hr)
	}
	seed, _ := wire.ReadU64(hr)

	r := &Reader{
		ra:          ra,
		Seed:        int64(seed),
		Dim:         dim,
		Pos:         region.Pos{X: int(xyz[0]), Y: int(xyz[1]), Z: int(xyz[2])},
		Compression: Compression(head[5]),
		locations:   make([]uint32, slotCount(dim)),
	}

	table := make([]byte, 4*len(r.locations))
	if _, err := ra.ReadAt(table, headerSize); err != nil {
		return nil, fmt.Errorf("%w: read location table: %v", ErrBadFile, err)
	}
	first := uint32(tableSectors(dim))
	for i := range r.locations {
		loc := binary.BigEndian.Uint32(table[i*4:])
		if loc != 0 && (loc>>8 < first || loc&0xFF == 0) {
			return nil, fmt.Errorf("%w: slot %d points at sector %d", ErrBadFile, i, loc>>8)
		}
		r.locations[i] = loc
	}
	return r, nil
}

func (r *Reader) payload(slot int) ([]byte, error) {
	loc := r.locations[slot]
	if loc == 0 {
		return nil, nil
	}
	offset := int64(loc>>8) * SectorSize
	limit := int(loc&0xFF)*SectorSize - 4

	var header [5]byte
	if _, err := r.ra.ReadAt(header[:], offset); err != nil {
		return nil, fmt.Errorf("%w: slot %d header: %v", ErrBadFile, slot, err)
	}
	n := int(binary.BigEndian.Uint32(header[0:4]))
	if n < 1 || n > limit {
		return nil, fmt.Errorf("%w: slot %d length %d exceeds %d", ErrBadFile, slot, n, limit)
	}
	compressed := make([]byte, n-1)
	if _, err := r.ra.ReadAt(compressed, offset+5); err != nil {
		return nil, fmt.Errorf("%w: slot %d data: %v", ErrBadFile, slot, err)
	}
	return decompress(Compression(header[4]), compressed)
}

func (r *Reader) slot(p chunk.Pos) (int, error) {
	n := chunksPerSide(r.Dim)
	if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= n || p.Y >= n || p.Z >= n {
		return 0, fmt.Errorf("%s outside region of %d chunks per side", p, n)
	}
	return (p.X*n+p.Y)*n + p.Z, nil
}

// Chunk reads one chunk. Chunks without a payload are air.
func (r *Reader) Chunk(p chunk.Pos) (*chunk.Chunk, error) {
	slot, err := r.slot(p)
	if err != nil {
		return nil, err
	}
	raw, err := r.payload(slot)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return chunk.New(), nil
	}
	c, err := chunk.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadFile, p, err)
	}
	return c, nil
}

// Biomes reads the column biomes, indexed z*Dim+x.
func (r *Reader) Biomes() ([]biome.ID, error) {
	n := chunksPerSide(r.Dim)
	out := make([]biome.ID, r.Dim*r.Dim)
	for cz := 0; cz < n; cz++ {
		for cx := 0; cx < n; cx++ {
			slot := chunkSlots(r.Dim) + cz*n + cx
			raw, err := r.payload(slot)
			if err != nil {
				return nil, err
			}
			if raw == nil {
				return nil, fmt.Errorf("%w: column (%d,%d) has no biomes", ErrBadFile, cx, cz)
			}
			column, err := wire.ReadByteArray(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: column (%d,%d) biomes: %v", ErrBadFile, cx, cz, err)
			}
			if len(column) != columnBiomes {
				return nil, fmt.Errorf("%w: column (%d,%d) has %d biomes, want %d", ErrBadFile, cx, cz, len(column), columnBiomes)
			}
			for z := 0; z < chunk.Dim; z++ {
				for x := 0; x < chunk.Dim; x++ {
					out[(cz*chunk.Dim+z)*r.Dim+cx*chunk.Dim+x] = biome.ID(column[z*chunk.Dim+x])
				}
			}
		}
	}
	return out, nil
}

// Region reads every chunk and the biomes.
func (r *Reader) Region() (*region.Region, error) {
	biomes, err := r.Biomes()
	if err != nil {
		return nil, err
	}
	n := chunksPerSide(r.Dim)
	chunks := make([]region.Chunk, 0, n*n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				p := chunk.Pos{X: x, Y: y, Z: z}
				slot, _ := r.slot(p)
				if r.locations[slot] == 0 {
					continue
				}
				c, err := r.Chunk(p)
				if err != nil {
					return nil, err
				}
				chunks = append(chunks, region.Chunk{Pos: p, Data: c})
			}
		}
	}
	return region.FromChunks(r.Seed, r.Pos, r.Dim, chunks, biomes)
}

// Decode parses a whole encoded region.
func Decode(data []byte) (*region.Region, error) {
	rd, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return rd.Region()
}

// SaveRegion writes r to Path(dir, r.Pos) and returns the path. The file
// is written to a temporary name and renamed into place.
func SaveRegion(dir string, r *region.Region, c Compression) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create region dir: %w", err)
	}

	path := Path(dir, r.Pos)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create temp region file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	if err := Encode(f, r, c); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close region file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename region file: %w", err)
	}
	return path, nil
}

// LoadRegion reads the region at pos from dir. A missing file is reported
// with an error matching os.ErrNotExist.
func LoadRegion(dir string, pos region.Pos) (*region.Region, error) {
	f, err := os.Open(Path(dir, pos))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd, err := NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	if rd.Pos != pos {
		return nil, fmt.Errorf("%w: %s holds %s", ErrBadFile, f.Name(), rd.Pos)
	}
	return rd.Region()
}
