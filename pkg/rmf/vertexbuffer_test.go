package rmf

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rmf-reader/pkg/vectors"
)

func mustDescriptor(t *testing.T, dt vectors.DataType, size int, flags vectors.Flags, bits ...uint8) *vectors.Descriptor {
	t.Helper()
	dims := make([]vectors.Dimension, len(bits))
	for i, b := range bits {
		dims[i] = vectors.Dimension{Flags: flags, Bits: b}
	}
	d, err := vectors.NewDescriptor(dt, size, dims)
	require.NoError(t, err)
	return d
}

func mustBuffer(t *testing.T, data []byte, desc *vectors.Descriptor, count int) *VectorBuffer {
	t.Helper()
	b, err := NewVectorBuffer(data, desc, count)
	require.NoError(t, err)
	return b
}

func floatBytes(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], stdmath.Float32bits(v))
	}
	return out
}

func TestVectorBuffer_Slice(t *testing.T) {
	desc := mustDescriptor(t, vectors.DataTypeReal, 4, vectors.FlagNone, 32, 32)
	buf := mustBuffer(t, floatBytes(0, 1, 2, 3, 4, 5, 6, 7), desc, 4)

	assert.Equal(t, 4, buf.Len())
	assert.Equal(t, vectors.Vector{4, 5}, buf.At(2))

	s := buf.Slice(1, 2)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, vectors.Vector{2, 3}, s.At(0))
	assert.Equal(t, vectors.Vector{4, 5}, s.At(1))
	assert.Same(t, desc, s.Descriptor())

	nested := s.Slice(1, 1)
	assert.Equal(t, vectors.Vector{4, 5}, nested.At(0))

	assert.Panics(t, func() { s.At(2) })
	assert.Panics(t, func() { s.Slice(1, 2) })
}

func TestNewVectorBuffer_ShortData(t *testing.T) {
	desc := mustDescriptor(t, vectors.DataTypeReal, 4, vectors.FlagNone, 32, 32, 32)
	_, err := NewVectorBuffer(floatBytes(1, 2, 3, 4), desc, 2)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestVertexBuffer_Slice(t *testing.T) {
	pos := mustDescriptor(t, vectors.DataTypeReal, 4, vectors.FlagNone, 32)
	col := mustDescriptor(t, vectors.DataTypeInteger, 1, vectors.FlagNone, 8)

	vb := &VertexBuffer{
		Count:     3,
		Positions: []*VectorBuffer{mustBuffer(t, floatBytes(10, 20, 30), pos, 3)},
		Colors:    []*VectorBuffer{mustBuffer(t, []byte{1, 2, 3}, col, 3)},
	}

	s := vb.Slice(1, 2)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, float32(20), s.Positions[0].At(0).X())
	assert.Equal(t, float32(3), s.Colors[0].At(1).X())
	assert.Nil(t, s.Normals)
}

func TestVertexBuffer_BlendPairs(t *testing.T) {
	index := mustDescriptor(t, vectors.DataTypeInteger, 1, vectors.FlagNone, 8, 8, 8, 8)
	weight := mustDescriptor(t, vectors.DataTypeInteger, 1, vectors.FlagNormalized, 8, 8, 8, 8)

	tests := []struct {
		name    string
		indices [][]byte // one channel per entry, 4 bytes per vertex
		weights [][]byte
		want    []BlendPair
	}{
		{
			name:    "rigid keeps first index",
			indices: [][]byte{{7, 1, 2, 3, 4, 0, 0, 0}},
			want: []BlendPair{
				{Indices: []int{7}, Weights: []float32{1}},
				{Indices: []int{4}, Weights: []float32{1}},
			},
		},
		{
			name:    "zero weights dropped",
			indices: [][]byte{{3, 5, 9, 9}},
			weights: [][]byte{{51, 204, 0, 0}},
			want: []BlendPair{
				{Indices: []int{3, 5}, Weights: []float32{0.2, 0.8}},
			},
		},
		{
			name:    "weights rescaled",
			indices: [][]byte{{1, 2, 0, 0}},
			weights: [][]byte{{50, 50, 0, 0}},
			want: []BlendPair{
				{Indices: []int{1, 2}, Weights: []float32{0.5, 0.5}},
			},
		},
		{
			name:    "all zero left empty",
			indices: [][]byte{{1, 2, 3, 4}},
			weights: [][]byte{{0, 0, 0, 0}},
			want: []BlendPair{
				{Indices: []int{}, Weights: []float32{}},
			},
		},
		{
			name:    "channels concatenate",
			indices: [][]byte{{1, 2, 0, 0}, {3, 4, 0, 0}},
			weights: [][]byte{{255, 0, 0, 0}, {0, 255, 0, 0}},
			want: []BlendPair{
				{Indices: []int{1, 4}, Weights: []float32{0.5, 0.5}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := len(tt.indices[0]) / 4
			vb := &VertexBuffer{Count: count}
			for _, data := range tt.indices {
				vb.BlendIndices = append(vb.BlendIndices, mustBuffer(t, data, index, count))
			}
			for _, data := range tt.weights {
				vb.BlendWeights = append(vb.BlendWeights, mustBuffer(t, data, weight, count))
			}

			got := vb.BlendPairs()
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.Indices, got[i].Indices)
				require.Len(t, got[i].Weights, len(want.Weights))
				for j := range want.Weights {
					assert.InDelta(t, want.Weights[j], got[i].Weights[j], 1e-6)
				}
			}
		})
	}
}

func TestVertexBuffer_BlendPairsSumToOne(t *testing.T) {
	index := mustDescriptor(t, vectors.DataTypeInteger, 1, vectors.FlagNone, 8, 8, 8, 8)
	weight := mustDescriptor(t, vectors.DataTypeInteger, 2, vectors.FlagNormalized, 16, 16, 16, 16)

	weights := [][4]uint16{
		{1, 0, 0, 0},
		{65535, 65535, 65535, 65535},
		{3, 17, 0, 40000},
		{12345, 0, 1, 2},
		{0, 0, 0, 7},
	}
	data := make([]byte, 0, 8*len(weights))
	for _, w := range weights {
		for _, v := range w {
			data = binary.LittleEndian.AppendUint16(data, v)
		}
	}

	vb := &VertexBuffer{
		Count:        len(weights),
		BlendIndices: []*VectorBuffer{mustBuffer(t, make([]byte, 4*len(weights)), index, len(weights))},
		BlendWeights: []*VectorBuffer{mustBuffer(t, data, weight, len(weights))},
	}

	for i, pair := range vb.BlendPairs() {
		var sum float64
		for _, w := range pair.Weights {
			assert.Greater(t, w, float32(0))
			sum += float64(w)
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "vertex %d", i)
	}
}

func TestNormalizeBlend(t *testing.T) {
	tests := []struct {
		name        string
		indices     []int
		weights     []float32
		wantIndices []int
		wantWeights []float32
	}{
		{"all positive", []int{1, 2}, []float32{1, 3}, []int{1, 2}, []float32{0.25, 0.75}},
		{"zero drops non-positive", []int{1, 2, 3, 4}, []float32{2, 0, -1, 2}, []int{1, 4}, []float32{0.5, 0.5}},
		{"negative kept without zero", []int{1, 2}, []float32{3, -1}, []int{1, 2}, []float32{1.5, -0.5}},
		{"truncated to weights", []int{5, 6, 7}, []float32{1, 1}, []int{5, 6}, []float32{0.5, 0.5}},
		{"truncated to indices", []int{5}, []float32{2, 2}, []int{5}, []float32{1}},
		{"all zero", []int{1, 2}, []float32{0, 0}, []int{}, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeBlend(tt.indices, tt.weights)
			assert.Equal(t, tt.wantIndices, got.Indices)
			assert.InDeltaSlice(t, tt.wantWeights, got.Weights, 1e-6)
		})
	}
}

func TestVertexBuffer_NoBlendChannels(t *testing.T) {
	vb := &VertexBuffer{Count: 3}
	assert.Nil(t, vb.BlendPairs())
}
