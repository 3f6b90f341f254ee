package rmf

import (
	"fmt"
	"sort"
)

// Custom property value types as stored in a CUST block.
const (
	propBool   = 0
	propInt    = 1
	propFloat  = 2
	propString = 3
)

// Properties holds the custom key/value pairs attached to an entity. Values
// are bool, int32, float32 or string, or a slice of one of those types.
type Properties map[string]any

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bool returns a scalar bool property.
func (p Properties) Bool(key string) (bool, bool) {
	v, ok := p[key].(bool)
	return v, ok
}

// Int returns a scalar int property.
func (p Properties) Int(key string) (int32, bool) {
	v, ok := p[key].(int32)
	return v, ok
}

// Float returns a scalar float property.
func (p Properties) Float(key string) (float32, bool) {
	v, ok := p[key].(float32)
	return v, ok
}

// Text returns a scalar string property.
func (p Properties) Text(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// readCustom decodes an optional CUST block. A missing block yields nil.
func (d *decoder) readCustom(set *blockSet) (Properties, error) {
	b, ok := set.Get("CUST")
	if !ok {
		return nil, nil
	}
	if err := d.r.Seek(b.Start); err != nil {
		return nil, err
	}

	count, err := d.readCount(b)
	if err != nil {
		return nil, fmt.Errorf("CUST: %w", err)
	}

	props := make(Properties, count)
	for i := 0; i < count; i++ {
		key, err := d.readStringRef()
		if err != nil {
			return nil, fmt.Errorf("CUST entry %d: %w", i, err)
		}
		value, err := d.readPropertyValue(b)
		if err != nil {
			return nil, fmt.Errorf("CUST entry %q: %w", key, err)
		}
		props[key] = value
	}

	return props, d.checkBody(b)
}

func (d *decoder) readPropertyValue(b *Block) (any, error) {
	kind, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}
	isArray, err := d.r.ReadBool()
	if err != nil {
		return nil, err
	}

	if !isArray {
		switch kind {
		case propBool:
			return d.r.ReadBool()
		case propInt:
			return d.r.ReadI32()
		case propFloat:
			return d.r.ReadF32()
		case propString:
			return d.readStringRef()
		}
		return nil, fmt.Errorf("%w: unknown property type %d", ErrMalformedBlock, kind)
	}

	n, err := d.readCount(b)
	if err != nil {
		return nil, err
	}
	switch kind {
	case propBool:
		return readArray(n, d.r.ReadBool)
	case propInt:
		return readArray(n, d.r.ReadI32)
	case propFloat:
		return readArray(n, d.r.ReadF32)
	case propString:
		return readArray(n, d.readStringRef)
	}
	return nil, fmt.Errorf("%w: unknown property type %d", ErrMalformedBlock, kind)
}

func readArray[T any](n int, read func() (T, error)) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := read()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
