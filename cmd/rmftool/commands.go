package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rmf-reader/internal/config"
	"github.com/Faultbox/rmf-reader/internal/logger"
	"github.com/Faultbox/rmf-reader/pkg/math"
	"github.com/Faultbox/rmf-reader/pkg/rmf"
	"github.com/Faultbox/rmf-reader/pkg/rmf/filter"
)

func cmdInfo(e *env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	scene, err := e.open(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "File:        %s\n", scene.SourcePath)
	fmt.Fprintf(e.out, "Scene:       %s\n", scene.Name)
	fmt.Fprintf(e.out, "Version:     %s\n", scene.Version)
	fmt.Fprintf(e.out, "Unit scale:  %g\n", scene.UnitScale)
	fmt.Fprintln(e.out)
	fmt.Fprintf(e.out, "Models:         %d\n", len(scene.Models))
	fmt.Fprintf(e.out, "Markers:        %d\n", len(scene.Markers))
	fmt.Fprintf(e.out, "Vertex buffers: %d\n", len(scene.VertexBuffers))
	fmt.Fprintf(e.out, "Index buffers:  %d\n", len(scene.IndexBuffers))
	fmt.Fprintf(e.out, "Materials:      %d\n", len(scene.Materials))
	fmt.Fprintf(e.out, "Textures:       %d\n", len(scene.Textures))
	return nil
}

func cmdTree(e *env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	scene, err := e.open(args[0])
	if err != nil {
		return err
	}

	f := filter.New(scene)
	if expr := e.cfg.Filter.Select; expr != "" {
		n, err := f.SelectWhere(expr)
		if err != nil {
			return err
		}
		logger.Debug("applied selection", zap.String("expr", expr), zap.Int("permutations", n))
	}

	printNode(e, f.Root, 0)

	c := f.Counts()
	fmt.Fprintf(e.out, "\nSelected: %d models, %d permutations, %d meshes, %d triangles, %d materials, %d textures\n",
		c.Models, c.Permutations, c.Meshes, c.Triangles, c.Materials, c.Textures)
	return nil
}

var checkMarks = map[filter.CheckState]string{
	filter.Checked:   "[x]",
	filter.Partial:   "[-]",
	filter.Unchecked: "[ ]",
}

func printNode(e *env, n *filter.Node, depth int) {
	label := n.Label
	if label == "" {
		label = "(unnamed)"
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(e.out, "%s%s %s %s\n", indent, checkMarks[n.State], label, kindSuffix(n))

	// permutation sets only help when some name spans regions
	if sets := n.PermutationSets(); len(sets) > 0 && len(sets) < countPermutations(n) {
		names := make([]string, len(sets))
		for i, set := range sets {
			names[i] = fmt.Sprintf("%s %s", checkMarks[set.State()], set.Label)
		}
		fmt.Fprintf(e.out, "%s  sets: %s\n", indent, strings.Join(names, ", "))
	}

	for _, c := range n.Children {
		printNode(e, c, depth+1)
	}
}

func countPermutations(n *filter.Node) int {
	count := 0
	for _, r := range n.Children {
		count += len(r.Children)
	}
	return count
}

func kindSuffix(n *filter.Node) string {
	switch n.Kind {
	case filter.KindPlacement:
		return fmt.Sprintf("<placement of %s>", n.Model().Name)
	case filter.KindPermutation:
		p := n.Permutation()
		s := fmt.Sprintf("<%d meshes>", p.MeshCount)
		if p.Instanced {
			s += " instanced"
		}
		return s
	default:
		return "<" + strings.ToLower(n.Kind.String()) + ">"
	}
}

func cmdDump(e *env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	scene, err := e.open(args[0])
	if err != nil {
		return err
	}

	summary := summarize(scene)
	if e.cfg.Output.Format == config.FormatYAML {
		enc := yaml.NewEncoder(e.out)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return enc.Close()
	}

	printSummary(e, summary)
	return nil
}

func cmdMesh(e *env, args []string) error {
	if len(args) < 3 {
		return errUsage
	}

	scene, err := e.open(args[0])
	if err != nil {
		return err
	}

	model, err := findModel(scene, args[1])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[2])
	if err != nil || index < 0 || index >= len(model.Meshes) {
		return fmt.Errorf("model %q has no mesh %q (%d meshes)", model.Name, args[2], len(model.Meshes))
	}
	mesh := model.Meshes[index]

	tris, err := scene.MeshTriangles(mesh)
	if err != nil {
		return err
	}
	positions, err := scene.MeshPositions(mesh)
	if err != nil {
		return err
	}
	normals, err := scene.MeshNormals(mesh)
	if err != nil {
		return err
	}

	out := meshOutput{
		Model:     model.Name,
		Mesh:      index,
		World:     scene.WorldTransform(),
		Positions: make([][3]float32, len(positions)),
		Normals:   make([][3]float32, len(normals)),
		Triangles: make([][3]int, len(tris)),
	}
	for i, p := range positions {
		out.Positions[i] = p.Array()
	}
	for i, n := range normals {
		out.Normals[i] = n.Array()
	}
	for i, t := range tris {
		out.Triangles[i] = [3]int(t)
	}
	if vb := scene.MeshVertexBuffer(mesh); vb != nil {
		out.Skinned = len(vb.BlendIndices) > 0
	}

	if e.cfg.Output.Format == config.FormatYAML {
		return yaml.NewEncoder(e.out).Encode(out)
	}

	prec := e.cfg.Output.Precision
	fmt.Fprintf(e.out, "Model %s mesh %d: %d vertices, %d triangles\n", out.Model, out.Mesh, len(positions), len(tris))
	if !out.World.IsIdentity() {
		fmt.Fprintf(e.out, "world %v\n", out.World)
	}
	for i, p := range out.Positions {
		fmt.Fprintf(e.out, "v %d %.*f %.*f %.*f\n", i, prec, p[0], prec, p[1], prec, p[2])
	}
	for i, n := range out.Normals {
		fmt.Fprintf(e.out, "vn %d %.*f %.*f %.*f\n", i, prec, n[0], prec, n[1], prec, n[2])
	}
	for _, t := range out.Triangles {
		fmt.Fprintf(e.out, "f %d %d %d\n", t[0], t[1], t[2])
	}
	return nil
}

type meshOutput struct {
	Model     string       `yaml:"model"`
	Mesh      int          `yaml:"mesh"`
	Skinned   bool         `yaml:"skinned"`
	World     math.Mat4    `yaml:"world,flow"` // file units to world space
	Positions [][3]float32 `yaml:"positions,flow"`
	Normals   [][3]float32 `yaml:"normals,flow,omitempty"`
	Triangles [][3]int     `yaml:"triangles,flow"`
}

func cmdTexture(e *env, args []string) error {
	if len(args) < 3 {
		return errUsage
	}

	scene, err := e.open(args[0])
	if err != nil {
		return err
	}

	tex, err := findTexture(scene, args[1])
	if err != nil {
		return err
	}
	if tex.Data == nil {
		return fmt.Errorf("texture %q has no embedded data", tex.Name)
	}

	data, err := scene.TextureData(tex)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[2], data, 0644); err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Wrote %s (%d bytes) to %s\n", tex.Name, len(data), args[2])
	return nil
}

// findModel resolves a model by name, falling back to a pool index.
func findModel(scene *rmf.Scene, key string) (*rmf.Model, error) {
	if m, ok := scene.ModelByName(key); ok {
		return m, nil
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(scene.Models) {
		return scene.Models[i], nil
	}
	return nil, fmt.Errorf("no model %q", key)
}

// findTexture resolves a texture by name, falling back to a pool index.
func findTexture(scene *rmf.Scene, key string) (*rmf.Texture, error) {
	for _, t := range scene.Textures {
		if t.Name == key {
			return t, nil
		}
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(scene.Textures) {
		return scene.Textures[i], nil
	}
	return nil, fmt.Errorf("no texture %q", key)
}

// cmdConfig saves the configuration in effect, after file and flag merging,
// to the given path or to the user config directory.
func cmdConfig(e *env, args []string) error {
	var err error
	path := filepath.Join(config.ConfigDir(), config.FileName)
	if len(args) > 0 {
		path = args[0]
		err = e.cfg.SaveTo(path)
	} else {
		err = e.cfg.Save()
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	logger.Sugar.Infow("saved configuration", "path", path, "level", e.cfg.Logging.Level)
	fmt.Fprintf(e.out, "Wrote %s\n", path)
	return nil
}
