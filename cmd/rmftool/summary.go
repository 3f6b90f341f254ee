package main

import (
	"fmt"
	"strings"

	"github.com/Faultbox/rmf-reader/pkg/rmf"
)

type sceneSummary struct {
	Name          string            `yaml:"name"`
	Version       string            `yaml:"version"`
	UnitScale     float32           `yaml:"unit_scale"`
	Models        []modelSummary    `yaml:"models"`
	VertexBuffers []bufferSummary   `yaml:"vertex_buffers,omitempty"`
	IndexBuffers  []indexSummary    `yaml:"index_buffers,omitempty"`
	Materials     []materialSummary `yaml:"materials,omitempty"`
	Textures      []textureSummary  `yaml:"textures,omitempty"`
}

type modelSummary struct {
	Name    string          `yaml:"name"`
	Bones   int             `yaml:"bones"`
	Markers int             `yaml:"markers"`
	Regions []regionSummary `yaml:"regions"`
	Meshes  int             `yaml:"meshes"`
}

type regionSummary struct {
	Name         string   `yaml:"name"`
	Permutations []string `yaml:"permutations,flow"`
}

type bufferSummary struct {
	Vertices int      `yaml:"vertices"`
	Channels []string `yaml:"channels,flow"`
}

type indexSummary struct {
	Layout  string `yaml:"layout"`
	Indices int    `yaml:"indices"`
}

type materialSummary struct {
	Name     string   `yaml:"name"`
	Textures []string `yaml:"textures,flow,omitempty"`
}

type textureSummary struct {
	Name     string `yaml:"name"`
	Embedded int64  `yaml:"embedded_bytes,omitempty"`
}

func summarize(scene *rmf.Scene) sceneSummary {
	s := sceneSummary{
		Name:      scene.Name,
		Version:   scene.Version.String(),
		UnitScale: scene.UnitScale,
	}

	for _, m := range scene.Models {
		ms := modelSummary{
			Name:    m.Name,
			Bones:   len(m.Bones),
			Markers: len(m.Markers),
			Meshes:  len(m.Meshes),
		}
		for _, r := range m.Regions {
			rs := regionSummary{Name: r.Name}
			for _, p := range r.Permutations {
				rs.Permutations = append(rs.Permutations, p.Name)
			}
			ms.Regions = append(ms.Regions, rs)
		}
		s.Models = append(s.Models, ms)
	}

	for _, vb := range scene.VertexBuffers {
		s.VertexBuffers = append(s.VertexBuffers, bufferSummary{Vertices: vb.Count, Channels: channelNames(vb)})
	}
	for _, ib := range scene.IndexBuffers {
		s.IndexBuffers = append(s.IndexBuffers, indexSummary{Layout: ib.Layout.String(), Indices: ib.Len()})
	}

	for _, mat := range scene.Materials {
		ms := materialSummary{Name: mat.Name}
		for _, tm := range mat.TextureMappings {
			name := "(none)"
			if tm.TextureIndex >= 0 && tm.TextureIndex < len(scene.Textures) {
				name = scene.Textures[tm.TextureIndex].Name
			}
			ms.Textures = append(ms.Textures, tm.Usage+"="+name)
		}
		s.Materials = append(s.Materials, ms)
	}

	for _, t := range scene.Textures {
		ts := textureSummary{Name: t.Name}
		if t.Data != nil {
			ts.Embedded = t.Data.Size
		}
		s.Textures = append(s.Textures, ts)
	}
	return s
}

// channelNames lists a buffer's channels as name:descriptor.
func channelNames(vb *rmf.VertexBuffer) []string {
	var out []string
	add := func(name string, channels []*rmf.VectorBuffer) {
		for _, c := range channels {
			out = append(out, name+":"+c.Descriptor().String())
		}
	}
	add("position", vb.Positions)
	add("texcoord", vb.TexCoords)
	add("normal", vb.Normals)
	add("tangent", vb.Tangents)
	add("binormal", vb.Binormals)
	add("blend_index", vb.BlendIndices)
	add("blend_weight", vb.BlendWeights)
	add("color", vb.Colors)
	return out
}

func printSummary(e *env, s sceneSummary) {
	fmt.Fprintf(e.out, "Scene %q v%s (unit scale %g)\n", s.Name, s.Version, s.UnitScale)

	for _, m := range s.Models {
		fmt.Fprintf(e.out, "Model %s: %d meshes, %d bones, %d markers\n", m.Name, m.Meshes, m.Bones, m.Markers)
		for _, r := range m.Regions {
			fmt.Fprintf(e.out, "  %s: %s\n", r.Name, strings.Join(r.Permutations, ", "))
		}
	}
	for i, vb := range s.VertexBuffers {
		fmt.Fprintf(e.out, "Vertex buffer %d: %d vertices [%s]\n", i, vb.Vertices, strings.Join(vb.Channels, " "))
	}
	for i, ib := range s.IndexBuffers {
		fmt.Fprintf(e.out, "Index buffer %d: %d indices (%s)\n", i, ib.Indices, ib.Layout)
	}
	for _, m := range s.Materials {
		fmt.Fprintf(e.out, "Material %s: %s\n", m.Name, strings.Join(m.Textures, " "))
	}
	for _, t := range s.Textures {
		if t.Embedded > 0 {
			fmt.Fprintf(e.out, "Texture %s: %d bytes embedded\n", t.Name, t.Embedded)
		} else {
			fmt.Fprintf(e.out, "Texture %s\n", t.Name)
		}
	}
}
