package rmf

import (
	"encoding/binary"
	"fmt"
)

// IndexLayout describes how an index buffer forms primitives.
type IndexLayout uint8

const (
	LayoutDefault       IndexLayout = 0 // treated as a triangle strip
	LayoutLineList      IndexLayout = 1
	LayoutLineStrip     IndexLayout = 2
	LayoutTriangleList  IndexLayout = 3
	LayoutTrianglePatch IndexLayout = 4
	LayoutTriangleStrip IndexLayout = 5
	LayoutQuadList      IndexLayout = 6
	LayoutRectList      IndexLayout = 7
)

// String returns a human-readable layout name.
func (l IndexLayout) String() string {
	switch l {
	case LayoutDefault:
		return "Default"
	case LayoutLineList:
		return "LineList"
	case LayoutLineStrip:
		return "LineStrip"
	case LayoutTriangleList:
		return "TriangleList"
	case LayoutTrianglePatch:
		return "TrianglePatch"
	case LayoutTriangleStrip:
		return "TriangleStrip"
	case LayoutQuadList:
		return "QuadList"
	case LayoutRectList:
		return "RectList"
	default:
		return fmt.Sprintf("Unknown(%d)", l)
	}
}

// Triangle holds three vertex indices.
type Triangle [3]int

// IndexBuffer holds resolved vertex indices and the layout they describe.
type IndexBuffer struct {
	Layout  IndexLayout
	Indices []int
}

// NewIndexBuffer decodes little-endian indices of the given byte width.
// Only widths of 1, 2 and 4 bytes are valid.
func NewIndexBuffer(layout IndexLayout, width int, data []byte) (*IndexBuffer, error) {
	if width != 1 && width != 2 && width != 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIndexWidth, width)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of width %d", ErrMalformedBlock, len(data), width)
	}

	indices := make([]int, len(data)/width)
	for i := range indices {
		switch width {
		case 1:
			indices[i] = int(data[i])
		case 2:
			indices[i] = int(binary.LittleEndian.Uint16(data[i*2:]))
		case 4:
			indices[i] = int(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}

	return &IndexBuffer{Layout: layout, Indices: indices}, nil
}

// Len returns the number of indices.
func (ib *IndexBuffer) Len() int {
	return len(ib.Indices)
}

// rangeOf resolves an (offset, count) pair; a negative count means "to the end".
func (ib *IndexBuffer) rangeOf(offset, count int) ([]int, error) {
	if count < 0 {
		count = len(ib.Indices) - offset
	}
	if offset < 0 || count < 0 || offset+count > len(ib.Indices) {
		return nil, fmt.Errorf("%w: %d+%d of %d indices", ErrIndexRange, offset, count, len(ib.Indices))
	}
	return ib.Indices[offset : offset+count], nil
}

// eachTriangle calls fn for every triangle in the index range.
func (ib *IndexBuffer) eachTriangle(offset, count int, fn func(Triangle)) error {
	indices, err := ib.rangeOf(offset, count)
	if err != nil {
		return err
	}

	switch ib.Layout {
	case LayoutTriangleList:
		for i := 0; i+2 < len(indices); i += 3 {
			fn(Triangle{indices[i], indices[i+1], indices[i+2]})
		}
		return nil
	case LayoutDefault, LayoutTriangleStrip:
		unpackStrip(indices, fn)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedLayout, ib.Layout)
	}
}

// unpackStrip slides a three-index window over a strip. The first two
// positions and any window with a repeated index emit nothing; otherwise odd
// positions swap the last two indices to keep winding consistent.
func unpackStrip(indices []int, fn func(Triangle)) {
	var i0, i1, i2 int
	for pos, idx := range indices {
		i0, i1, i2 = i1, i2, idx
		if pos < 2 || i0 == i1 || i0 == i2 || i1 == i2 {
			continue
		}
		if pos%2 == 0 {
			fn(Triangle{i0, i1, i2})
		} else {
			fn(Triangle{i0, i2, i1})
		}
	}
}

// Triangles returns the triangles formed by count indices starting at offset.
func (ib *IndexBuffer) Triangles(offset, count int) ([]Triangle, error) {
	var out []Triangle
	err := ib.eachTriangle(offset, count, func(t Triangle) {
		out = append(out, t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SegmentTriangles returns the triangles of one mesh segment.
func (ib *IndexBuffer) SegmentTriangles(seg *MeshSegment) ([]Triangle, error) {
	return ib.Triangles(seg.IndexStart, seg.IndexLength)
}

// MeshTriangles returns the triangles of every segment of mesh in order.
func (ib *IndexBuffer) MeshTriangles(mesh *Mesh) ([]Triangle, error) {
	var out []Triangle
	for i, seg := range mesh.Segments {
		tris, err := ib.SegmentTriangles(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, tris...)
	}
	return out, nil
}

// CountTriangles returns len(Triangles(offset, count)) without building the list.
func (ib *IndexBuffer) CountTriangles(offset, count int) (int, error) {
	if ib.Layout == LayoutTriangleList {
		indices, err := ib.rangeOf(offset, count)
		if err != nil {
			return 0, err
		}
		return len(indices) / 3, nil
	}

	n := 0
	err := ib.eachTriangle(offset, count, func(Triangle) { n++ })
	return n, err
}

// CountSegmentTriangles counts the triangles of one mesh segment.
func (ib *IndexBuffer) CountSegmentTriangles(seg *MeshSegment) (int, error) {
	return ib.CountTriangles(seg.IndexStart, seg.IndexLength)
}

// CountMeshTriangles counts the triangles across all segments of mesh.
func (ib *IndexBuffer) CountMeshTriangles(mesh *Mesh) (int, error) {
	total := 0
	for i, seg := range mesh.Segments {
		n, err := ib.CountSegmentTriangles(seg)
		if err != nil {
			return 0, fmt.Errorf("segment %d: %w", i, err)
		}
		total += n
	}
	return total, nil
}

// VertexRange returns the smallest and largest vertex index referenced by
// seg, inclusive. ok is false for an empty or out of range segment.
func (ib *IndexBuffer) VertexRange(seg *MeshSegment) (lo, hi int, ok bool) {
	indices, err := ib.rangeOf(seg.IndexStart, seg.IndexLength)
	if err != nil || len(indices) == 0 {
		return 0, 0, false
	}
	lo, hi = indices[0], indices[0]
	for _, idx := range indices[1:] {
		lo = min(lo, idx)
		hi = max(hi, idx)
	}
	return lo, hi, true
}

// RelativeSlice returns a new buffer holding only seg's indices, shifted so
// the smallest becomes zero. Combined with VertexBuffer.Slice over the
// VertexRange it yields a self-contained sub-mesh.
func (ib *IndexBuffer) RelativeSlice(seg *MeshSegment) (*IndexBuffer, error) {
	indices, err := ib.rangeOf(seg.IndexStart, seg.IndexLength)
	if err != nil {
		return nil, err
	}

	out := &IndexBuffer{Layout: ib.Layout, Indices: make([]int, len(indices))}
	if len(indices) == 0 {
		return out, nil
	}

	lo, _, _ := ib.VertexRange(seg)
	for i, idx := range indices {
		out.Indices[i] = idx - lo
	}
	return out, nil
}
