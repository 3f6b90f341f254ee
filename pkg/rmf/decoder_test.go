package rmf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/rmf-reader/pkg/math"
	"github.com/Faultbox/rmf-reader/pkg/vectors"
)

func decodeBytes(data []byte, opts ...Option) (*Scene, error) {
	return Decode(bytes.NewReader(data), int64(len(data)), opts...)
}

func TestDecode_TriangleScene(t *testing.T) {
	positions := [9]float32{
		0, 0, 0,
		1.5, 0, 0,
		0, 2.25, -1,
	}
	scene, err := decodeBytes(triangleScene(positions))
	require.NoError(t, err)

	assert.Equal(t, Version{1, 2, 3, 4}, scene.Version)
	assert.Equal(t, "1.2.3.4", scene.Version.String())
	assert.Equal(t, float32(100), scene.UnitScale)
	assert.True(t, scene.WorldMatrix.IsIdentity())
	assert.Equal(t, "triangle", scene.Name)

	require.Len(t, scene.Models, 1)
	model := scene.Models[0]
	assert.Equal(t, "triangle", model.Name)

	require.Len(t, model.Regions, 1)
	assert.Equal(t, "body", model.Regions[0].Name)
	require.Len(t, model.Regions[0].Permutations, 1)
	perm := model.Regions[0].Permutations[0]
	assert.Equal(t, "default", perm.Name)
	assert.False(t, perm.Instanced)
	assert.True(t, perm.Transform.IsIdentity())
	assert.Len(t, perm.Meshes(model), 1)

	require.Len(t, model.Meshes, 1)
	mesh := model.Meshes[0]
	assert.Equal(t, -1, mesh.BoneIndex)

	tris, err := scene.MeshTriangles(mesh)
	require.NoError(t, err)
	assert.Equal(t, []Triangle{{0, 1, 2}}, tris)

	got, err := scene.MeshPositions(mesh)
	require.NoError(t, err)
	want := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1.5, Y: 0, Z: 0}, {X: 0, Y: 2.25, Z: -1}}
	assert.Equal(t, want, got)

	require.NotNil(t, scene.Root)
	assert.Equal(t, "root", scene.Root.Name)
	require.Len(t, scene.Root.Objects, 1)
	placement, ok := scene.Root.Objects[0].(*Placement)
	require.True(t, ok)
	assert.Equal(t, "triangle_placement", placement.Name)
	assert.Equal(t, &ModelRef{ModelIndex: 0}, placement.Object)
}

func TestDecode_EmptyScene(t *testing.T) {
	w := &chunkWriter{}
	scene, err := decodeBytes(w.scene("", nil))
	require.NoError(t, err)

	assert.Empty(t, scene.Name)
	assert.Nil(t, scene.Root)
	assert.Empty(t, scene.Models)
	assert.Empty(t, scene.Textures)
}

func TestDecode_InvalidMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "wrong code",
			data: func() []byte {
				w := &chunkWriter{}
				w.scalar("RMF?", func() { w.u8(0, 0, 0, 0) })
				return w.buf.Bytes()
			}(),
		},
		{
			name: "root is a list",
			data: func() []byte {
				w := &chunkWriter{}
				w.list(Magic)
				return w.buf.Bytes()
			}(),
		},
		{
			name: "empty file",
			data: []byte{},
		},
		{
			name: "end beyond file",
			data: []byte{'R', 'M', 'F', '!', 0xFF, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := decodeBytes(tt.data)
			assert.Nil(t, scene)
			assert.ErrorIs(t, err, ErrInvalidMagic)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecode_RootHeaderOverrun(t *testing.T) {
	tests := map[string]int32{
		"empty body":   8,
		"partial body": 20,
	}

	for name, end := range tests {
		t.Run(name, func(t *testing.T) {
			w := &chunkWriter{}
			w.code(Magic)
			w.i32(end)
			// version, unit scale, world matrix and name ref
			w.u8(1, 0, 0, 0)
			w.f32(1)
			w.f32(1, 0, 0, 0, 1, 0, 0, 0, 1)
			w.i32(-1)

			scene, err := decodeBytes(w.buf.Bytes())
			assert.Nil(t, scene)
			assert.ErrorIs(t, err, ErrMalformedBlock)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecode_UnsupportedEncoding(t *testing.T) {
	tests := []struct {
		name    string
		props   func(w *chunkWriter)
		wantErr error
	}{
		{
			name: "index width 3",
			props: func(w *chunkWriter) {
				w.list("IBUF", func() {
					w.scalar("IBUF", func() {
						w.u8(uint8(LayoutTriangleList), 3)
						w.i32(1)
						w.u8(0, 0, 0)
					})
				})
			},
			wantErr: ErrInvalidIndexWidth,
		},
		{
			name: "unknown descriptor kind",
			props: func(w *chunkWriter) {
				w.list("VECD", func() {
					w.scalar("VECD", func() {
						w.u8(9, 4)
						w.i32(1)
						w.u8(0, 32)
					})
				})
			},
			wantErr: ErrUnsupportedEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &chunkWriter{}
			scene, err := decodeBytes(w.scene("s", func() { tt.props(w) }))
			assert.Nil(t, scene)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrUnsupportedEncoding)
		})
	}
}

func TestDecode_Truncated(t *testing.T) {
	w := &chunkWriter{}
	w.scalar(Magic, func() { w.u8(1, 0) })

	_, err := decodeBytes(w.buf.Bytes())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_MissingAttr(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MODL", func() {
			w.scalar("MODL", nil)
		})
	})

	_, err := decodeBytes(data)
	assert.ErrorIs(t, err, ErrMissingBlock)
}

func TestDecode_MismatchedListElement(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MATL", func() {
			w.scalar("BITM", func() {
				w.attr(func() { w.ref("t"); w.f32(2.2) })
			})
		})
	})

	_, err := decodeBytes(data)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestDecode_InvalidStringReference(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MATL", func() {
			w.scalar("MATL", func() {
				w.attr(func() { w.i32(42, -1) })
			})
		})
	})

	_, err := decodeBytes(data)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestDecode_UnknownBlocksAreSkipped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.scalar("FUTR", func() { w.u8(1, 2, 3, 4, 5) })
		w.scalar("NODE", func() {
			w.attr(func() { w.ref("root") })
			w.list("OBJE", func() {
				w.scalar("LITE", func() { w.f32(1, 1, 1) })
			})
			w.scalar("XTRA", nil)
		})
	})

	scene, err := decodeBytes(data, WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.NotNil(t, scene.Root)
	assert.Empty(t, scene.Root.Objects)
	assert.Equal(t, 1, logs.FilterMessage("skipping unknown scene object").Len())
}

func TestDecode_VertexChannels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	w := &chunkWriter{}
	data := w.scene("channels", func() {
		w.list("VECD",
			func() {
				w.scalar("VECD", func() {
					w.u8(uint8(vectors.DataTypeReal), 4)
					w.i32(2)
					w.u8(0, 32, 0, 32)
				})
			},
			func() {
				w.scalar("VECD", func() {
					w.u8(uint8(vectors.DataTypeInteger), 1)
					w.i32(3)
					n := uint8(vectors.FlagNormalized)
					w.u8(n, 8, n, 8, n, 8)
				})
			},
		)
		w.list("VBUF", func() {
			w.scalar("VBUF", func() {
				w.attr(func() { w.i32(2) })
				w.scalar(channelTexCoord, func() {
					w.i32(0)
					w.f32(0.25, 0.5, 0.75, 1)
				})
				w.scalar(channelTangent, func() {
					w.i32(1)
					w.u8(255, 0, 0, 0, 255, 0)
				})
				w.scalar("XTRA", func() { w.u8(9) })
				w.scalar(channelBinormal, func() {
					w.i32(1)
					w.u8(0, 0, 255, 0, 0, 255)
				})
				w.scalar(channelTexCoord, func() {
					w.i32(0)
					w.f32(7, 8, 9, 10)
				})
			})
		})
	})

	scene, err := decodeBytes(data, WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.Len(t, scene.VertexBuffers, 1)
	vb := scene.VertexBuffers[0]
	assert.Equal(t, 2, vb.Count)
	assert.Empty(t, vb.Positions)

	require.Len(t, vb.Tangents, 1)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, []float32(vb.Tangents[0].At(0)), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, []float32(vb.Tangents[0].At(1)), 1e-6)
	require.Len(t, vb.Binormals, 1)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, []float32(vb.Binormals[0].At(1)), 1e-6)
	assert.Equal(t, "UInt8N3", vb.Binormals[0].Descriptor().String())

	require.Len(t, vb.TexCoords, 2)
	assert.Equal(t, vectors.Vector{0.75, 1}, vb.TexCoords[0].At(1))
	assert.Equal(t, vectors.Vector{7, 8}, vb.TexCoords[1].At(0))

	assert.Equal(t, 1, logs.FilterMessage("skipping unknown vertex channel").Len())
}

func TestDecode_Materials(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MATL", func() {
			w.scalar("MATL", func() {
				w.attr(func() {
					w.ref("stone")
					w.ref("blend")
				})
				w.list("TMAP", func() {
					w.scalar("TMAP", func() {
						w.attr(func() {
							w.ref("diffuse")
							w.i32(-1, 0, 0x0F)
							w.f32(2, 4)
						})
						w.scalar("CUST", func() {
							w.i32(1)
							w.ref("wrap")
							w.u8(propString, 0)
							w.ref("mirror")
						})
					})
				})
				w.list("TINT", func() {
					w.scalar("TINT", func() {
						w.attr(func() {
							w.ref("specular")
							w.i32(1)
							w.u8(10, 20, 30, 255)
						})
						w.scalar("CUST", func() {
							w.i32(1)
							w.ref("intensity")
							w.u8(propFloat, 0)
							w.f32(0.5)
						})
					})
				})
			})
		})
		w.list("BITM", func() {
			w.scalar("BITM", func() {
				w.attr(func() {
					w.ref("stone_diffuse")
					w.f32(2.2)
				})
			})
		})
	})

	scene, err := decodeBytes(data)
	require.NoError(t, err)

	require.Len(t, scene.Materials, 1)
	mat := scene.Materials[0]
	assert.Equal(t, "stone", mat.Name)
	assert.Equal(t, "blend", mat.AlphaMode)
	require.Len(t, mat.TextureMappings, 1)
	assert.Equal(t, &TextureMapping{
		Usage:        "diffuse",
		BlendChannel: -1,
		TextureIndex: 0,
		ChannelMask:  0x0F,
		Tiling:       [2]float32{2, 4},
		Properties:   Properties{"wrap": "mirror"},
	}, mat.TextureMappings[0])
	require.Len(t, mat.Tints, 1)
	assert.Equal(t, math.Color{R: 10, G: 20, B: 30, A: 255}, mat.Tints[0].Color)
	intensity, ok := mat.Tints[0].Properties.Float("intensity")
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), intensity)
	assert.Nil(t, mat.Properties)

	require.Len(t, scene.Textures, 1)
	assert.Equal(t, "stone_diffuse", scene.Textures[0].Name)
	assert.InDelta(t, 2.2, scene.Textures[0].Gamma, 1e-6)
	assert.Nil(t, scene.Textures[0].Data)
}

func TestDecode_CustomProperties(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.scalar("NODE", func() {
			w.attr(func() { w.ref("root") })
			w.scalar("CUST", func() {
				w.i32(5)
				w.ref("visible")
				w.u8(propBool, 0, 1)
				w.ref("lod")
				w.u8(propInt, 0)
				w.i32(-3)
				w.ref("scale")
				w.u8(propFloat, 0)
				w.f32(0.5)
				w.ref("tag")
				w.u8(propString, 0)
				w.ref("hero")
				w.ref("weights")
				w.u8(propFloat, 1)
				w.i32(2)
				w.f32(0.25, 0.75)
			})
		})
	})

	scene, err := decodeBytes(data)
	require.NoError(t, err)

	props := scene.Root.Properties
	assert.Equal(t, []string{"lod", "scale", "tag", "visible", "weights"}, props.Keys())

	visible, ok := props.Bool("visible")
	assert.True(t, ok)
	assert.True(t, visible)

	lod, ok := props.Int("lod")
	assert.True(t, ok)
	assert.Equal(t, int32(-3), lod)

	scale, ok := props.Float("scale")
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), scale)

	tag, ok := props.Text("tag")
	assert.True(t, ok)
	assert.Equal(t, "hero", tag)

	assert.Equal(t, []float32{0.25, 0.75}, props["weights"])

	_, ok = props.Int("scale")
	assert.False(t, ok)
}

func TestDecode_SceneProperties(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.scalar("CUST", func() {
			w.i32(2)
			w.ref("author")
			w.u8(propString, 0)
			w.ref("exporter")
			w.ref("lods")
			w.u8(propInt, 1)
			w.i32(3)
			w.i32(0, 1, 2)
		})
	})

	scene, err := decodeBytes(data)
	require.NoError(t, err)

	author, ok := scene.Properties.Text("author")
	assert.True(t, ok)
	assert.Equal(t, "exporter", author)
	assert.Equal(t, []int32{0, 1, 2}, scene.Properties["lods"])
}

func TestDecode_UnknownPropertyType(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.scalar("NODE", func() {
			w.attr(func() { w.ref("root") })
			w.scalar("CUST", func() {
				w.i32(1)
				w.ref("odd")
				w.u8(7, 0)
			})
		})
	})

	_, err := decodeBytes(data)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestDecode_Skeleton(t *testing.T) {
	bones := func(parents ...int32) []byte {
		w := &chunkWriter{}
		return w.scene("s", func() {
			w.list("MODL", func() {
				w.scalar("MODL", func() {
					w.attr(func() { w.ref("m"); w.i32(0) })
					elems := make([]func(), len(parents))
					for i, p := range parents {
						p := p
						elems[i] = func() {
							w.scalar("BONE", func() {
								w.attr(func() {
									w.ref("bone")
									w.i32(p)
									w.f32(1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1)
								})
							})
						}
					}
					w.list("BONE", elems...)
				})
			})
		})
	}

	tests := []struct {
		name    string
		parents []int32
		wantErr error
	}{
		{"single root", []int32{-1}, nil},
		{"chain", []int32{-1, 0, 1, 1}, nil},
		{"parent out of range", []int32{-1, 5}, ErrInvalidReference},
		{"self parent", []int32{0}, ErrInvalidReference},
		{"cycle", []int32{-1, 2, 1}, ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := decodeBytes(bones(tt.parents...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, scene)
				return
			}
			require.NoError(t, err)
			require.Len(t, scene.Models[0].Bones, len(tt.parents))
			for i, p := range tt.parents {
				assert.Equal(t, int(p), scene.Models[0].Bones[i].ParentIndex)
				assert.True(t, scene.Models[0].Bones[i].Transform.IsIdentity())
			}
		})
	}
}

func TestDecode_Markers(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MARK", func() {
			w.scalar("MARK", func() {
				w.attr(func() { w.ref("spawn") })
				w.list("MKIN", func() {
					w.scalar("MKIN", func() {
						w.attr(func() {
							w.i32(-1, -1, -1)
							w.f32(1, 2, 3)
							w.f32(0, 0, 0, 1)
						})
					})
				})
			})
		})
	})

	scene, err := decodeBytes(data)
	require.NoError(t, err)
	require.Len(t, scene.Markers, 1)
	assert.Equal(t, "spawn", scene.Markers[0].Name)
	require.Len(t, scene.Markers[0].Instances, 1)

	inst := scene.Markers[0].Instances[0]
	assert.Equal(t, -1, inst.RegionIndex)
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, inst.Position)
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, inst.Transform().Translation())
}

func TestDecode_InvalidMeshReferences(t *testing.T) {
	tests := []struct {
		name string
		mesh []int32 // vertex buffer, index buffer, bone
		seg  []int32 // start, length, material
	}{
		{"vertex buffer", []int32{1, 0, -1}, []int32{0, 3, -1}},
		{"index buffer", []int32{0, 4, -1}, []int32{0, 3, -1}},
		{"bone", []int32{0, 0, 0}, []int32{0, 3, -1}},
		{"segment range", []int32{0, 0, -1}, []int32{1, 3, -1}},
		{"material", []int32{0, 0, -1}, []int32{0, 3, 2}},
		{"segment without index buffer", []int32{0, -1, -1}, []int32{0, 3, -1}},
		{"vertex buffer below -1", []int32{-2, 0, -1}, []int32{0, 3, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &chunkWriter{}
			data := w.scene("s", func() {
				w.list("MODL", func() {
					w.scalar("MODL", func() {
						w.attr(func() { w.ref("m"); w.i32(0) })
						w.list("MESH", func() {
							w.scalar("MESH", func() {
								w.attr(func() {
									w.i32(tt.mesh...)
									w.identity3x4()
									w.identity3x4()
								})
								w.list("MSEG", func() {
									w.scalar("MSEG", func() {
										w.attr(func() { w.i32(tt.seg...) })
									})
								})
							})
						})
					})
				})
				w.list("VECD", func() {
					w.scalar("VECD", func() {
						w.u8(0, 4)
						w.i32(3)
						w.u8(0, 32, 0, 32, 0, 32)
					})
				})
				w.list("VBUF", func() {
					w.scalar("VBUF", func() {
						w.attr(func() { w.i32(0) })
						w.scalar(channelPosition, func() { w.i32(0) })
					})
				})
				w.list("IBUF", func() {
					w.scalar("IBUF", func() {
						w.u8(uint8(LayoutTriangleList), 1)
						w.i32(3)
						w.u8(0, 1, 2)
					})
				})
			})

			_, err := decodeBytes(data)
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}

func TestDecode_MeshWithoutBuffers(t *testing.T) {
	w := &chunkWriter{}
	data := w.scene("s", func() {
		w.list("MODL", func() {
			w.scalar("MODL", func() {
				w.attr(func() { w.ref("placeholder"); w.i32(0) })
				w.list("MESH", func() {
					w.scalar("MESH", func() {
						w.attr(func() {
							w.i32(-1, -1, -1)
							w.identity3x4()
							w.identity3x4()
						})
						w.list("MSEG", func() {
							w.scalar("MSEG", func() {
								w.attr(func() { w.i32(0, 0, -1) })
							})
						})
					})
				})
			})
		})
	})

	scene, err := decodeBytes(data)
	require.NoError(t, err)
	require.Len(t, scene.Models, 1)
	mesh := scene.Models[0].Meshes[0]
	assert.Nil(t, scene.MeshVertexBuffer(mesh))
	assert.Nil(t, scene.MeshIndexBuffer(mesh))

	tris, err := scene.MeshTriangles(mesh)
	assert.NoError(t, err)
	assert.Empty(t, tris)
	positions, err := scene.MeshPositions(mesh)
	assert.NoError(t, err)
	assert.Empty(t, positions)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.rmf")
	require.NoError(t, os.WriteFile(path, triangleScene([9]float32{}), 0o644))

	scene, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, scene.SourcePath)
	assert.Len(t, scene.Models, 1)

	_, err = Open(filepath.Join(t.TempDir(), "missing.rmf"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
