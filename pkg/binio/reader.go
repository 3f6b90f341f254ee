// Package binio provides a little-endian primitive reader over a random-access
// byte source.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	rmath "github.com/Faultbox/rmf-reader/pkg/math"
)

// Reader errors.
var (
	ErrTruncated     = errors.New("truncated data")
	ErrSeekRange     = errors.New("seek position out of range")
	ErrInvalidLength = errors.New("invalid string length")
)

// Reader reads fixed-width little-endian values from an io.ReaderAt while
// tracking its own cursor. Seeking is free; reads past the end of the source
// fail with ErrTruncated.
type Reader struct {
	src     io.ReaderAt
	size    int64
	pos     int64
	legacy  encoding.Encoding
	scratch [64]byte
}

// NewReader creates a Reader over size bytes of src.
func NewReader(src io.ReaderAt, size int64) *Reader {
	return &Reader{
		src:    src,
		size:   size,
		legacy: charmap.Windows1252,
	}
}

// NewBytesReader creates a Reader over an in-memory buffer.
func NewBytesReader(data []byte) *Reader {
	return NewReader(byteSource(data), int64(len(data)))
}

type byteSource []byte

func (b byteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// SetLegacyEncoding changes the text encoding used by ReadCString.
func (r *Reader) SetLegacyEncoding(enc encoding.Encoding) {
	r.legacy = enc
}

// Size returns the total number of bytes in the source.
func (r *Reader) Size() int64 { return r.size }

// Position returns the current cursor.
func (r *Reader) Position() int64 { return r.pos }

// Remaining returns the number of bytes between the cursor and the end.
func (r *Reader) Remaining() int64 { return r.size - r.pos }

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.size {
		return fmt.Errorf("%w: 0x%X (size 0x%X)", ErrSeekRange, pos, r.size)
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.pos + n)
}

// next reads exactly n bytes into the scratch buffer when they fit, or a
// fresh slice otherwise. The scratch result is only valid until the next read.
func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.size-r.pos {
		return nil, fmt.Errorf("%w: need %d bytes at 0x%X, %d available", ErrTruncated, n, r.pos, r.size-r.pos)
	}
	var buf []byte
	if n <= len(r.scratch) {
		buf = r.scratch[:n]
	} else {
		buf = make([]byte, n)
	}
	if n == 0 {
		return buf, nil
	}
	read, err := r.src.ReadAt(buf, r.pos)
	if read < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrTruncated
		}
		return nil, fmt.Errorf("reading %d bytes at 0x%X: %w", n, r.pos, err)
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadBytes reads n bytes into a newly allocated slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.next(n)
	if err != nil {
		return nil, err
	}
	if n <= len(r.scratch) {
		out := make([]byte, n)
		copy(out, buf)
		return out, nil
	}
	return buf, nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	buf, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBool reads one byte and reports whether it is non-zero.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// ReadU16 reads an unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	buf, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadI16 reads a signed 16-bit integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	buf, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadI32 reads a signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadF32 reads a 32-bit IEEE float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadFloats reads n consecutive 32-bit floats.
func (r *Reader) ReadFloats(n int) ([]float32, error) {
	buf, err := r.next(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

func (r *Reader) readFloatsInto(dst []float32) error {
	buf, err := r.next(len(dst) * 4)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return nil
}

// ReadChars reads n bytes as a raw ASCII string.
func (r *Reader) ReadChars(n int) (string, error) {
	buf, err := r.next(n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadString reads a 32-bit length followed by that many bytes of UTF-8 text.
func (r *Reader) ReadString() (string, error) {
	length, err := r.ReadI32()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("%w: %d at 0x%X", ErrInvalidLength, length, r.pos-4)
	}
	buf, err := r.next(int(length))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadVec3 reads three floats.
func (r *Reader) ReadVec3() (rmath.Vec3, error) {
	var v [3]float32
	if err := r.readFloatsInto(v[:]); err != nil {
		return rmath.Vec3{}, err
	}
	return rmath.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// ReadQuat reads four floats in X, Y, Z, W order.
func (r *Reader) ReadQuat() (rmath.Quat, error) {
	var v [4]float32
	if err := r.readFloatsInto(v[:]); err != nil {
		return rmath.Quat{}, err
	}
	return rmath.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}, nil
}

// ReadMatrix3x3 reads three rows of three floats.
func (r *Reader) ReadMatrix3x3() (rmath.Mat3, error) {
	var m rmath.Mat3
	err := r.readFloatsInto(m[:])
	return m, err
}

// ReadMatrix3x4 reads four rows of three floats; the homogeneous column is
// filled in rather than read.
func (r *Reader) ReadMatrix3x4() (rmath.Mat4, error) {
	var rows [12]float32
	if err := r.readFloatsInto(rows[:]); err != nil {
		return rmath.Mat4{}, err
	}
	return rmath.FromRows3x4(rows), nil
}

// ReadMatrix4x4 reads four rows of four floats.
func (r *Reader) ReadMatrix4x4() (rmath.Mat4, error) {
	var m rmath.Mat4
	err := r.readFloatsInto(m[:])
	return m, err
}
