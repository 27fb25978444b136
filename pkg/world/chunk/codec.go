package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/OCharnyshevich/worldgen/internal/wire"
	"github.com/OCharnyshevich/worldgen/pkg/world/block"
)

// ErrCorrupt is returned when encoded chunk data violates the chunk
// invariants.
var ErrCorrupt = errors.New("corrupt chunk data")

// Encoded layout:
//
//	varint  palette length
//	varint  palette entries (block IDs)
//	u8      bits per index
//	varint  word count
//	u64     words, big-endian

// EncodedSize is the number of bytes WriteTo produces for c.
func (c *Chunk) EncodedSize() int {
	n := wire.VarIntSize(int32(len(c.palette)))
	for _, b := range c.palette {
		n += wire.VarIntSize(int32(b))
	}
	n++
	n += wire.VarIntSize(int32(len(c.indexes.words)))
	return n + 8*len(c.indexes.words)
}

// WriteTo encodes c to w.
func (c *Chunk) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Grow(c.EncodedSize())
	wire.WriteVarInt(&buf, int32(len(c.palette)))
	for _, b := range c.palette {
		wire.WriteVarInt(&buf, int32(b))
	}
	buf.WriteByte(byte(c.indexes.bits))
	wire.WriteVarInt(&buf, int32(len(c.indexes.words)))
	for _, word := range c.indexes.words {
		wire.WriteU64(&buf, word)
	}
	return buf.WriteTo(w)
}

// MarshalBinary encodes c.
func (c *Chunk) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data into c, replacing its contents.
func (c *Chunk) UnmarshalBinary(data []byte) error {
	d, err := Read(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*c = *d
	return nil
}

// Read decodes one chunk from r and checks that the palette starts with
// air, holds only known and distinct blocks, and that every index points
// into it.
func Read(r io.Reader) (*Chunk, error) {
	n, err := wire.ReadLength(r, Volume+1)
	if err != nil {
		return nil, fmt.Errorf("read palette length: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrCorrupt)
	}

	palette := make([]block.ID, n)
	seen := make(map[block.ID]bool, n)
	for i := range palette {
		v, _, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, fmt.Errorf("read palette entry %d: %w", i, err)
		}
		if v < 0 || int(v) >= block.Count {
			return nil, fmt.Errorf("%w: palette entry %d is unknown block %d", ErrCorrupt, i, v)
		}
		b := block.ID(v)
		if seen[b] {
			return nil, fmt.Errorf("%w: palette repeats %s", ErrCorrupt, b)
		}
		seen[b] = true
		palette[i] = b
	}
	if palette[0] != block.Air {
		return nil, fmt.Errorf("%w: palette starts with %s", ErrCorrupt, palette[0])
	}

	bits, err := wire.ReadU8(r)
	if err != nil {
		return nil, fmt.Errorf("read index width: %w", err)
	}
	if bits < initialBits || bits > 16 {
		return nil, fmt.Errorf("%w: index width %d", ErrCorrupt, bits)
	}
	indexes := NewPackedArray(Volume, int(bits))
	if uint64(n-1) > indexes.MaxValue() {
		return nil, fmt.Errorf("%w: %d palette entries do not fit %d bits", ErrCorrupt, n, bits)
	}

	words, err := wire.ReadLength(r, len(indexes.words))
	if err != nil {
		return nil, fmt.Errorf("read word count: %w", err)
	}
	if words != len(indexes.words) {
		return nil, fmt.Errorf("%w: %d words, want %d", ErrCorrupt, words, len(indexes.words))
	}
	for i := range indexes.words {
		if indexes.words[i], err = wire.ReadU64(r); err != nil {
			return nil, fmt.Errorf("read word %d: %w", i, err)
		}
	}
	for i := 0; i < Volume; i++ {
		if indexes.Get(i) >= uint64(n) {
			return nil, fmt.Errorf("%w: index %d points past palette", ErrCorrupt, i)
		}
	}

	return &Chunk{indexes: indexes, palette: palette}, nil
}
