// Package vectors decodes vertex channel data described by a persisted vector
// descriptor: plain floats, per-axis integers, or multiple fields packed into
// a single integer.
package vectors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidDescriptor is returned for descriptors that cannot be decoded.
var ErrInvalidDescriptor = errors.New("invalid vector descriptor")

// DataType selects the decode strategy of a descriptor.
type DataType uint8

const (
	DataTypeReal    DataType = 0 // consecutive 32-bit floats
	DataTypeInteger DataType = 1 // one integer per dimension
	DataTypePacked  DataType = 2 // all dimensions in one integer
)

// String returns a human-readable data type name.
func (t DataType) String() string {
	switch t {
	case DataTypeReal:
		return "Real"
	case DataTypeInteger:
		return "Integer"
	case DataTypePacked:
		return "Packed"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Dimension is the persisted (flags, bit length) pair of one vector component.
type Dimension struct {
	Flags Flags
	Bits  uint8
}

// Descriptor decodes vectors of one channel. It is immutable after
// construction and safe for concurrent use.
type Descriptor struct {
	dataType DataType
	size     int
	dims     []Dimension
	fields   []BitConfig
	stride   int
	decode   func(b []byte) Vector
}

// NewDescriptor builds the decode strategy for a descriptor. size is the
// element byte size: the float size for Real, the per-dimension integer size
// for Integer, and the container size for Packed.
func NewDescriptor(dataType DataType, size int, dims []Dimension) (*Descriptor, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrInvalidDescriptor)
	}

	d := &Descriptor{
		dataType: dataType,
		size:     size,
		dims:     append([]Dimension(nil), dims...),
	}

	switch dataType {
	case DataTypeReal:
		if size != 4 {
			return nil, fmt.Errorf("%w: %d-byte real elements", ErrInvalidDescriptor, size)
		}
		d.stride = size * len(dims)
		d.decode = d.decodeReal
		return d, nil

	case DataTypeInteger:
		if !validIntegerSize(size) {
			return nil, fmt.Errorf("%w: %d-byte integer elements", ErrInvalidDescriptor, size)
		}
		d.fields = make([]BitConfig, len(dims))
		for i, dim := range dims {
			if int(dim.Bits) > size*8 {
				return nil, fmt.Errorf("%w: %d bits in a %d-byte integer", ErrInvalidDescriptor, dim.Bits, size)
			}
			field, err := NewBitConfig(0, uint(dim.Bits), dim.Flags)
			if err != nil {
				return nil, err
			}
			d.fields[i] = field
		}
		d.stride = size * len(dims)
		d.decode = d.decodeInteger
		return d, nil

	case DataTypePacked:
		if !validIntegerSize(size) {
			return nil, fmt.Errorf("%w: %d-byte packed container", ErrInvalidDescriptor, size)
		}
		d.fields = make([]BitConfig, len(dims))
		var offset uint
		for i, dim := range dims {
			if offset+uint(dim.Bits) > uint(size*8) {
				return nil, fmt.Errorf("%w: %d-byte container cannot hold fields %v", ErrInvalidDescriptor, size, dims)
			}
			field, err := NewBitConfig(offset, uint(dim.Bits), dim.Flags)
			if err != nil {
				return nil, err
			}
			d.fields[i] = field
			offset += uint(dim.Bits)
		}
		d.stride = size
		d.decode = d.decodePacked
		return d, nil
	}

	return nil, fmt.Errorf("%w: unknown data type %d", ErrInvalidDescriptor, dataType)
}

func validIntegerSize(size int) bool {
	return size == 1 || size == 2 || size == 4
}

func readUint(b []byte, size int) uint32 {
	switch size {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}

func (d *Descriptor) decodeReal(b []byte) Vector {
	v := make(Vector, len(d.dims))
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func (d *Descriptor) decodeInteger(b []byte) Vector {
	v := make(Vector, len(d.fields))
	for i, field := range d.fields {
		v[i] = field.Value(readUint(b[i*d.size:], d.size))
	}
	return v
}

func (d *Descriptor) decodePacked(b []byte) Vector {
	bits := readUint(b, d.size)
	v := make(Vector, len(d.fields))
	for i, field := range d.fields {
		v[i] = field.Value(bits)
	}
	return v
}

// Decode returns the vector at index within data. It panics if data does not
// hold index+1 complete vectors, the same way slice indexing does.
func (d *Descriptor) Decode(data []byte, index int) Vector {
	start := index * d.stride
	return d.decode(data[start : start+d.stride])
}

// DataType returns the persisted data type.
func (d *Descriptor) DataType() DataType { return d.dataType }

// ElementSize returns the persisted element byte size.
func (d *Descriptor) ElementSize() int { return d.size }

// Len returns the number of components per vector.
func (d *Descriptor) Len() int { return len(d.dims) }

// Stride returns the number of bytes occupied by one vector.
func (d *Descriptor) Stride() int { return d.stride }

// Dimensions returns a copy of the persisted dimension list.
func (d *Descriptor) Dimensions() []Dimension {
	return append([]Dimension(nil), d.dims...)
}

// Fields returns the bit fields of Integer and Packed descriptors.
func (d *Descriptor) Fields() []BitConfig {
	return append([]BitConfig(nil), d.fields...)
}

// String names the layout, e.g. Float32_3, UInt16N4 or Pack32N_10_10_10_2.
func (d *Descriptor) String() string {
	bits := d.size * 8
	if d.dataType == DataTypeReal {
		return fmt.Sprintf("Float%d_%d", bits, len(d.dims))
	}

	sign := "U"
	if d.dims[0].Flags.Signed() {
		sign = ""
	}
	norm := "_"
	if d.dims[0].Flags.Normalized() {
		norm = "N"
	}

	if d.dataType == DataTypeInteger {
		return fmt.Sprintf("%sInt%d%s%d", sign, bits, norm, len(d.dims))
	}

	widths := make([]string, len(d.dims))
	for i, dim := range d.dims {
		widths[i] = fmt.Sprint(dim.Bits)
	}
	return fmt.Sprintf("%sPack%d%s_%s", sign, bits, norm, strings.Join(widths, "_"))
}
