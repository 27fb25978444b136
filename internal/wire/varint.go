// Package wire holds the small binary primitives shared by the chunk,
// region file and transport codecs. Multi-byte integers are big-endian;
// lengths and counts are unsigned LEB128 varints.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxByteArray caps length-prefixed payloads read from untrusted input.
const MaxByteArray = 1 << 28

// ErrVarIntTooLong is returned for varints longer than five bytes.
var ErrVarIntTooLong = errors.New("varint too long")

// ReadVarInt reads one varint and reports how many bytes it took.
func ReadVarInt(r io.Reader) (int32, int, error) {
	var result uint32
	var numRead int
	var buf [1]byte

	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, numRead, err
		}
		numRead++

		result |= uint32(buf[0]&0x7F) << (7 * (numRead - 1))

		if buf[0]&0x80 == 0 {
			break
		}

		if numRead >= 5 {
			return 0, numRead, ErrVarIntTooLong
		}
	}

	return int32(result), numRead, nil
}

// WriteVarInt writes value as a varint of at most five bytes.
func WriteVarInt(w io.Writer, value int32) (int, error) {
	var buf [5]byte
	n := PutVarInt(buf[:], value)
	return w.Write(buf[:n])
}

// PutVarInt encodes value into buf, which must hold five bytes.
func PutVarInt(buf []byte, value int32) int {
	val := uint32(value)
	n := 0
	for {
		b := byte(val & 0x7F)
		val >>= 7
		if val != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if val == 0 {
			break
		}
	}
	return n
}

// VarIntSize is the encoded length of value.
func VarIntSize(value int32) int {
	val := uint32(value)
	size := 0
	for {
		size++
		val >>= 7
		if val == 0 {
			break
		}
	}
	return size
}

// ReadLength reads a varint count and checks it against limit.
func ReadLength(r io.Reader, limit int) (int, error) {
	n, _, err := ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > limit {
		return 0, fmt.Errorf("length %d out of range [0,%d]", n, limit)
	}
	return int(n), nil
}

// ReadByteArray reads a varint length and that many bytes. Lengths above
// MaxByteArray are rejected.
func ReadByteArray(r io.Reader) ([]byte, error) {
	length, err := ReadLength(r, MaxByteArray)
	if err != nil {
		return nil, fmt.Errorf("read byte array length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read byte array data: %w", err)
	}
	return buf, nil
}

// WriteByteArray writes data behind a varint length.
func WriteByteArray(w io.Writer, data []byte) (int, error) {
	n1, err := WriteVarInt(w, int32(len(data)))
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(data)
	return n1 + n2, err
}

func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func ReadI32(r io.Reader) (int32, error) {
	var val int32
	if err := binary.Read(r, binary.BigEndian, &val); err != nil {
		return 0, err
	}
	return val, nil
}

func WriteI32(w io.Writer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadU64(r io.Reader) (uint64, error) {
	var val uint64
	if err := binary.Read(r, binary.BigEndian, &val); err != nil {
		return 0, err
	}
	return val, nil
}

func WriteU64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.BigEndian, v)
}
