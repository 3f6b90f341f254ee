package rmf

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/rmf-reader/pkg/vectors"
)

// Vertex channel codes inside a VBUF block.
const (
	channelPosition    = "POSN"
	channelTexCoord    = "TEXC"
	channelNormal      = "NORM"
	channelTangent     = "TANG"
	channelBinormal    = "BNRM"
	channelBlendIndex  = "BLID"
	channelBlendWeight = "BLWT"
	channelColor       = "COLR"
)

func (d *decoder) readDescriptor(b *Block) (*vectors.Descriptor, error) {
	r := d.r
	if err := r.Seek(b.Start); err != nil {
		return nil, err
	}

	kind, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	count, err := d.readCount(b)
	if err != nil {
		return nil, err
	}

	dims := make([]vectors.Dimension, count)
	for i := range dims {
		flags, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		bits, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		dims[i] = vectors.Dimension{Flags: vectors.Flags(flags), Bits: bits}
	}
	if err := d.checkBody(b); err != nil {
		return nil, err
	}

	desc, err := vectors.NewDescriptor(vectors.DataType(kind), int(size), dims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedEncoding, err)
	}
	return desc, nil
}

func (d *decoder) readVertexBuffer(b *Block) (*VertexBuffer, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	count, err := d.readIndex()
	if err != nil {
		return nil, fmt.Errorf("vertex count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: vertex count %d", ErrMalformedBlock, count)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	vb := &VertexBuffer{Count: count}
	for _, c := range props.blocks {
		var dst *[]*VectorBuffer
		switch c.Code {
		case channelPosition:
			dst = &vb.Positions
		case channelTexCoord:
			dst = &vb.TexCoords
		case channelNormal:
			dst = &vb.Normals
		case channelTangent:
			dst = &vb.Tangents
		case channelBinormal:
			dst = &vb.Binormals
		case channelBlendIndex:
			dst = &vb.BlendIndices
		case channelBlendWeight:
			dst = &vb.BlendWeights
		case channelColor:
			dst = &vb.Colors
		case "ATTR", "CUST":
			continue
		default:
			d.log.Debug("skipping unknown vertex channel", zap.Stringer("block", c))
			continue
		}

		channel, err := d.readChannel(c, count)
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", c.Code, err)
		}
		*dst = append(*dst, channel)
	}

	if vb.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return vb, nil
}

func (d *decoder) readChannel(b *Block, count int) (*VectorBuffer, error) {
	if err := d.r.Seek(b.Start); err != nil {
		return nil, err
	}

	index, err := d.readIndex()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.descriptors) {
		return nil, fmt.Errorf("%w: vector descriptor %d of %d", ErrInvalidReference, index, len(d.descriptors))
	}
	desc := d.descriptors[index]

	size := int64(count) * int64(desc.Stride())
	if size > b.End-d.r.Position() {
		return nil, fmt.Errorf("%w: %d x %s needs %d bytes, block has %d",
			ErrMalformedBlock, count, desc, size, b.End-d.r.Position())
	}
	data, err := d.r.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	return NewVectorBuffer(data, desc, count)
}

func (d *decoder) readIndexBuffer(b *Block) (*IndexBuffer, error) {
	r := d.r
	if err := r.Seek(b.Start); err != nil {
		return nil, err
	}

	layout, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	width, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if width != 1 && width != 2 && width != 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIndexWidth, width)
	}
	count, err := d.readCount(b)
	if err != nil {
		return nil, err
	}

	size := int64(count) * int64(width)
	if size > b.End-r.Position() {
		return nil, fmt.Errorf("%w: %d indices of %d bytes overrun the block", ErrMalformedBlock, count, width)
	}
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	return NewIndexBuffer(IndexLayout(layout), int(width), data)
}
