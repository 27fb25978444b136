package anvil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a payload is compressed. The values are
// stored in files and must not change.
type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
	CompressionNone Compression = 3
	CompressionZstd Compression = 4
	CompressionXZ   Compression = 5
)

var compressionNames = map[Compression]string{
	CompressionGzip: "gzip",
	CompressionZlib: "zlib",
	CompressionNone: "none",
	CompressionZstd: "zstd",
	CompressionXZ:   "xz",
}

func (c Compression) String() string {
	if n, ok := compressionNames[c]; ok {
		return n
	}
	return fmt.Sprintf("compression(%d)", byte(c))
}

// ParseCompression resolves a compression name. The empty string selects
// zlib.
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return CompressionZlib, nil
	}
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// maxPayload bounds a decompressed payload.
const maxPayload = 1 << 24

func compress(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		w, err = gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	case CompressionZlib:
		w, err = zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	case CompressionZstd:
		w, err = zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case CompressionXZ:
		w, err = xz.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadFile, c)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s writer: %w", c, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s compress: %w", c, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close %s writer: %w", c, err)
	}
	return buf.Bytes(), nil
}

func decompress(c Compression, data []byte) ([]byte, error) {
	src := bytes.NewReader(data)
	var r io.ReadCloser

	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrBadFile, err)
		}
		r = zr
	case CompressionZlib:
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrBadFile, err)
		}
		r = zr
	case CompressionZstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		r = zr.IOReadCloser()
	case CompressionXZ:
		zr, err := xz.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: xz: %v", ErrBadFile, err)
		}
		r = io.NopCloser(zr)
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadFile, c)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadFile, c, err)
	}
	if len(out) > maxPayload {
		return nil, fmt.Errorf("%w: %s payload exceeds %d bytes", ErrBadFile, c, maxPayload)
	}
	return out, nil
}
