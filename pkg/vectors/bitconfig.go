package vectors

import (
	"fmt"
	"math"
)

// Flags control how a bit field is interpreted.
type Flags uint8

// Dimension flags. At most one of the sign flags may be set.
const (
	FlagNone         Flags = 0
	FlagNormalized   Flags = 1
	FlagSignExtended Flags = 2
	FlagSignShifted  Flags = 4

	signMask = FlagSignExtended | FlagSignShifted
)

// Normalized reports whether values are scaled into 0..1 or -1..1.
func (f Flags) Normalized() bool { return f&FlagNormalized != 0 }

// Signed reports whether either sign convention applies.
func (f Flags) Signed() bool { return f&signMask != 0 }

// BitConfig decodes one field of Length bits at Offset within a container
// integer of up to 32 bits.
type BitConfig struct {
	Offset uint
	Length uint
	Flags  Flags

	mask  uint32
	scale int64
}

// NewBitConfig validates a field definition and precomputes its masks.
func NewBitConfig(offset, length uint, flags Flags) (BitConfig, error) {
	if length == 0 || length > 32 || offset+length > 32 {
		return BitConfig{}, fmt.Errorf("%w: field of %d bits at offset %d", ErrInvalidDescriptor, length, offset)
	}
	if flags&signMask == signMask {
		return BitConfig{}, fmt.Errorf("%w: both sign modes set on %d-bit field", ErrInvalidDescriptor, length)
	}

	c := BitConfig{
		Offset: offset,
		Length: length,
		Flags:  flags,
		mask:   uint32((uint64(1) << length) - 1),
	}
	if flags.Signed() {
		c.scale = int64(1)<<(length-1) - 1
	} else {
		c.scale = int64(1)<<length - 1
	}
	return c, nil
}

// Scale returns the largest representable magnitude, which is also the
// divisor used for normalized fields.
func (c BitConfig) Scale() int64 { return c.scale }

// Raw extracts the unsigned field bits.
func (c BitConfig) Raw(bits uint32) uint32 {
	return (bits >> c.Offset) & c.mask
}

// Integer returns the field as a signed integer after applying the sign mode.
func (c BitConfig) Integer(bits uint32) int64 {
	raw := c.Raw(bits)
	v := int64(raw)
	switch c.Flags & signMask {
	case FlagSignShifted:
		v -= c.scale
	case FlagSignExtended:
		if raw&(1<<(c.Length-1)) != 0 {
			v -= int64(1) << c.Length
		}
	}
	return v
}

// Value decodes the field to a float, normalizing it when requested.
// A 1-bit signed field has no magnitude to normalize by and is returned as-is.
func (c BitConfig) Value(bits uint32) float32 {
	v := c.Integer(bits)
	if c.Flags.Normalized() && c.scale != 0 {
		return float32(float64(v) / float64(c.scale))
	}
	return float32(v)
}

// Encode is the inverse of Value: it quantizes v to the field and returns the
// bits positioned at Offset. Out-of-range input wraps to the field width.
func (c BitConfig) Encode(v float32) uint32 {
	f := float64(v)
	if c.Flags.Normalized() && c.scale != 0 {
		f *= float64(c.scale)
	}
	n := int64(math.Round(f))
	if c.Flags&signMask == FlagSignShifted {
		n += c.scale
	}
	return (uint32(n) & c.mask) << c.Offset
}

// String formats the field as s10[0] or u2[30].
func (c BitConfig) String() string {
	sign := "u"
	if c.Flags.Signed() {
		sign = "s"
	}
	return fmt.Sprintf("%s%d[%d]", sign, c.Length, c.Offset)
}
