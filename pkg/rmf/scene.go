// Package rmf decodes RMF scene files: a chunked binary container holding
// models, skeletons, meshes, materials and textures exported from a game
// asset pipeline.
//
// The decoded Scene is immutable and may be read from multiple goroutines.
// Pool entries are referenced by index; -1 means "none".
package rmf

import (
	"fmt"

	"github.com/Faultbox/rmf-reader/pkg/math"
)

// Magic is the code of the root block of every RMF file.
const Magic = "RMF!"

// Version is the exporter version recorded in the file.
type Version struct {
	Major, Minor, Build, Revision uint8
}

// String returns the version as "Major.Minor.Build.Revision".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Scene is the root of a decoded file. It owns every pooled buffer, material
// and texture; models and meshes refer to pool entries by index.
type Scene struct {
	Version     Version
	UnitScale   float32
	WorldMatrix math.Mat3
	Name        string
	SourcePath  string // set by Open

	Root    *SceneGroup
	Markers []*Marker // scene-level markers not owned by any model

	Models        []*Model
	VertexBuffers []*VertexBuffer
	IndexBuffers  []*IndexBuffer
	Materials     []*Material
	Textures      []*Texture

	Properties Properties
}

// SceneGroup is a node of the scene hierarchy.
type SceneGroup struct {
	Name       string
	Groups     []*SceneGroup
	Objects    []SceneObject
	Properties Properties
}

// SceneObject is an object placed in a SceneGroup: either a *ModelRef or a
// *Placement wrapping another object.
type SceneObject interface {
	sceneObject()
}

// ModelRef refers to an entry of Scene.Models.
type ModelRef struct {
	ModelIndex int
}

// Placement positions another scene object with a transform.
type Placement struct {
	Name       string
	Flags      int32
	Transform  math.Mat4
	Object     SceneObject
	Properties Properties
}

func (*ModelRef) sceneObject()  {}
func (*Placement) sceneObject() {}

// Model is a named collection of regions, markers, a skeleton and meshes.
type Model struct {
	Name       string
	Flags      int32
	Regions    []*Region
	Markers    []*Marker
	Bones      []*Bone
	Meshes     []*Mesh
	Properties Properties
}

// Region groups alternative permutations of one part of a model.
type Region struct {
	Name         string
	Permutations []*Permutation
	Properties   Properties
}

// Permutation selects a contiguous range of the owning model's meshes.
type Permutation struct {
	Name       string
	Instanced  bool
	MeshIndex  int
	MeshCount  int
	Transform  math.Mat4
	Properties Properties
}

// Meshes returns the meshes of m covered by the permutation.
func (p *Permutation) Meshes(m *Model) []*Mesh {
	if p.MeshCount <= 0 || p.MeshIndex < 0 || p.MeshIndex+p.MeshCount > len(m.Meshes) {
		return nil
	}
	return m.Meshes[p.MeshIndex : p.MeshIndex+p.MeshCount]
}

// Marker is a named set of attachment points.
type Marker struct {
	Name       string
	Instances  []*MarkerInstance
	Properties Properties
}

// MarkerInstance is one attachment point, optionally bound to a region,
// permutation and bone of the owning model (-1 when unbound).
type MarkerInstance struct {
	RegionIndex      int
	PermutationIndex int
	BoneIndex        int
	Position         math.Vec3
	Rotation         math.Quat
	Properties       Properties
}

// Transform returns the local transform of the instance.
func (mi *MarkerInstance) Transform() math.Mat4 {
	return mi.Rotation.Transform(mi.Position)
}

// Bone is one node of a model skeleton. ParentIndex is -1 for roots.
type Bone struct {
	Name        string
	ParentIndex int
	Transform   math.Mat4
	Properties  Properties
}

// Mesh binds a vertex buffer and an index buffer from the scene pools.
// VertexTransform and TextureTransform decompress positions and texture
// coordinates stored in normalized ranges.
type Mesh struct {
	VertexBufferIndex int // -1 when the mesh has no vertex buffer
	IndexBufferIndex  int // -1 when the mesh has no index buffer
	BoneIndex         int
	VertexTransform   math.Mat4
	TextureTransform  math.Mat4
	Segments          []*MeshSegment
	Properties        Properties
}

// MeshSegment is a range of a mesh's index buffer drawn with one material.
type MeshSegment struct {
	IndexStart    int
	IndexLength   int
	MaterialIndex int
	Properties    Properties
}

// Material describes how a surface is shaded.
type Material struct {
	Name            string
	AlphaMode       string
	TextureMappings []*TextureMapping
	Tints           []*Tint
	Properties      Properties
}

// TextureMapping binds a texture to one material input.
type TextureMapping struct {
	Usage        string
	BlendChannel int32
	TextureIndex int
	ChannelMask  int32
	Tiling       [2]float32
	Properties   Properties
}

// Tint is a constant color material input.
type Tint struct {
	Usage        string
	BlendChannel int32
	Color        math.Color
	Properties   Properties
}

// Texture is a bitmap referenced by materials.
type Texture struct {
	Name       string
	Gamma      float32
	Data       *EmbeddedData // nil unless the bitmap is embedded in the file
	Properties Properties
}

// EmbeddedData locates raw bytes stored inside the file. The bytes are not
// loaded during decode; see ReadEmbeddedData.
type EmbeddedData struct {
	Address int64
	Size    int64
}

// MeshVertexBuffer returns the vertex buffer used by mesh, or nil.
func (s *Scene) MeshVertexBuffer(mesh *Mesh) *VertexBuffer {
	if mesh.VertexBufferIndex < 0 || mesh.VertexBufferIndex >= len(s.VertexBuffers) {
		return nil
	}
	return s.VertexBuffers[mesh.VertexBufferIndex]
}

// MeshIndexBuffer returns the index buffer used by mesh, or nil.
func (s *Scene) MeshIndexBuffer(mesh *Mesh) *IndexBuffer {
	if mesh.IndexBufferIndex < 0 || mesh.IndexBufferIndex >= len(s.IndexBuffers) {
		return nil
	}
	return s.IndexBuffers[mesh.IndexBufferIndex]
}

// MeshTriangles returns every triangle of every segment of mesh. A mesh
// without an index buffer (index -1) has no triangles.
func (s *Scene) MeshTriangles(mesh *Mesh) ([]Triangle, error) {
	ib := s.MeshIndexBuffer(mesh)
	if ib == nil {
		if mesh.IndexBufferIndex == -1 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: mesh index buffer %d", ErrInvalidReference, mesh.IndexBufferIndex)
	}
	return ib.MeshTriangles(mesh)
}

// MeshPositions decodes the first position channel of mesh's vertex buffer
// and applies the mesh vertex transform.
func (s *Scene) MeshPositions(mesh *Mesh) ([]math.Vec3, error) {
	vb := s.MeshVertexBuffer(mesh)
	if vb == nil {
		if mesh.VertexBufferIndex == -1 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: mesh vertex buffer %d", ErrInvalidReference, mesh.VertexBufferIndex)
	}
	if len(vb.Positions) == 0 {
		return nil, nil
	}
	channel := vb.Positions[0]
	out := make([]math.Vec3, channel.Len())
	for i := range out {
		v := channel.At(i)
		out[i] = mesh.VertexTransform.TransformPoint(math.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()})
	}
	return out, nil
}

// MeshNormals decodes the first normal channel of mesh's vertex buffer,
// rotates it by the mesh vertex transform and renormalizes it.
func (s *Scene) MeshNormals(mesh *Mesh) ([]math.Vec3, error) {
	vb := s.MeshVertexBuffer(mesh)
	if vb == nil {
		if mesh.VertexBufferIndex == -1 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: mesh vertex buffer %d", ErrInvalidReference, mesh.VertexBufferIndex)
	}
	if len(vb.Normals) == 0 {
		return nil, nil
	}
	channel := vb.Normals[0]
	out := make([]math.Vec3, channel.Len())
	for i := range out {
		v := channel.At(i)
		out[i] = mesh.VertexTransform.TransformDirection(math.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}).Normalize()
	}
	return out, nil
}

// WorldTransform maps file units into world space: the scene world matrix
// applied after a uniform UnitScale.
func (s *Scene) WorldTransform() math.Mat4 {
	u := s.UnitScale
	return s.WorldMatrix.Mat4().Mul(math.Scale(u, u, u))
}

// ModelByName returns the first model with the given name.
func (s *Scene) ModelByName(name string) (*Model, bool) {
	for _, m := range s.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}
