package rmf

import (
	"fmt"
	"slices"

	"github.com/Faultbox/rmf-reader/pkg/vectors"
)

// VectorBuffer is a lazily decoded view of one vertex channel. Slicing shares
// the underlying bytes.
type VectorBuffer struct {
	data   []byte
	desc   *vectors.Descriptor
	offset int
	count  int
}

// NewVectorBuffer wraps count vectors of desc stored in data.
func NewVectorBuffer(data []byte, desc *vectors.Descriptor, count int) (*VectorBuffer, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative vector count %d", ErrMalformedBlock, count)
	}
	if need := count * desc.Stride(); len(data) < need {
		return nil, fmt.Errorf("%w: %s channel needs %d bytes, have %d", ErrTruncated, desc, need, len(data))
	}
	return &VectorBuffer{data: data, desc: desc, count: count}, nil
}

// Len returns the number of vectors in the view.
func (b *VectorBuffer) Len() int { return b.count }

// Descriptor returns the channel's vector descriptor.
func (b *VectorBuffer) Descriptor() *vectors.Descriptor { return b.desc }

// At decodes the vector at index i. It panics if i is out of range.
func (b *VectorBuffer) At(i int) vectors.Vector {
	if i < 0 || i >= b.count {
		panic(fmt.Sprintf("rmf: vector index %d out of range [0,%d)", i, b.count))
	}
	return b.desc.Decode(b.data, b.offset+i)
}

// Slice returns a view of count vectors starting at offset.
func (b *VectorBuffer) Slice(offset, count int) *VectorBuffer {
	if offset < 0 || count < 0 || offset+count > b.count {
		panic(fmt.Sprintf("rmf: slice [%d:%d] out of range [0,%d)", offset, offset+count, b.count))
	}
	return &VectorBuffer{data: b.data, desc: b.desc, offset: b.offset + offset, count: count}
}

// VertexBuffer groups the channels of one vertex pool entry. Every channel
// holds Count vectors; a channel kind may repeat (e.g. several texcoord sets).
type VertexBuffer struct {
	Count        int
	Positions    []*VectorBuffer
	TexCoords    []*VectorBuffer
	Normals      []*VectorBuffer
	Tangents     []*VectorBuffer
	Binormals    []*VectorBuffer
	BlendIndices []*VectorBuffer
	BlendWeights []*VectorBuffer
	Colors       []*VectorBuffer
	Properties   Properties
}

// Slice returns a view of count vertices starting at offset across every
// channel.
func (vb *VertexBuffer) Slice(offset, count int) *VertexBuffer {
	slice := func(channels []*VectorBuffer) []*VectorBuffer {
		if channels == nil {
			return nil
		}
		out := make([]*VectorBuffer, len(channels))
		for i, c := range channels {
			out[i] = c.Slice(offset, count)
		}
		return out
	}

	return &VertexBuffer{
		Count:        count,
		Positions:    slice(vb.Positions),
		TexCoords:    slice(vb.TexCoords),
		Normals:      slice(vb.Normals),
		Tangents:     slice(vb.Tangents),
		Binormals:    slice(vb.Binormals),
		BlendIndices: slice(vb.BlendIndices),
		BlendWeights: slice(vb.BlendWeights),
		Colors:       slice(vb.Colors),
		Properties:   vb.Properties,
	}
}

// BlendPair lists the bones influencing one vertex and their weights.
type BlendPair struct {
	Indices []int
	Weights []float32
}

// BlendPairs returns the skinning influences of every vertex. Multiple index
// and weight channels are concatenated per vertex. Without weight channels
// the buffer is rigid and each vertex keeps only its first bone at weight 1.
// Zero weights are dropped and the rest rescaled to sum to 1. It returns nil
// when the buffer has no blend index channel.
func (vb *VertexBuffer) BlendPairs() []BlendPair {
	if len(vb.BlendIndices) == 0 {
		return nil
	}

	rigid := len(vb.BlendWeights) == 0
	pairs := make([]BlendPair, vb.Count)
	for i := range pairs {
		var indices []int
		for _, c := range vb.BlendIndices {
			for _, f := range c.At(i) {
				indices = append(indices, int(f))
			}
		}

		if rigid {
			if len(indices) > 0 {
				pairs[i] = BlendPair{Indices: indices[:1], Weights: []float32{1}}
			}
			continue
		}

		var weights []float32
		for _, c := range vb.BlendWeights {
			weights = append(weights, c.At(i)...)
		}
		pairs[i] = normalizeBlend(indices, weights)
	}
	return pairs
}

// normalizeBlend pairs indices with weights up to the shorter list. If any
// weight is exactly zero, the non-positive entries are dropped; the remaining
// weights are then rescaled to sum to one when their sum is positive.
func normalizeBlend(indices []int, weights []float32) BlendPair {
	n := min(len(indices), len(weights))
	indices, weights = indices[:n], weights[:n]

	if slices.Contains(weights, 0) {
		kept := BlendPair{Indices: make([]int, 0, n), Weights: make([]float32, 0, n)}
		for j, w := range weights {
			if w > 0 {
				kept.Indices = append(kept.Indices, indices[j])
				kept.Weights = append(kept.Weights, w)
			}
		}
		indices, weights = kept.Indices, kept.Weights
	}

	pair := BlendPair{Indices: slices.Clone(indices), Weights: slices.Clone(weights)}
	var sum float64
	for _, w := range pair.Weights {
		sum += float64(w)
	}
	if sum > 0 {
		for j, w := range pair.Weights {
			pair.Weights[j] = float32(float64(w) / sum)
		}
	}
	return pair
}
