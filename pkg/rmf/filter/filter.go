// Package filter builds a check-state selection tree over a decoded scene:
// groups, then models or placements, then regions, then permutations.
// Selecting or clearing a node applies to all of its descendants, and
// ancestors show Partial when their children disagree.
package filter

import (
	"fmt"
	"sort"

	"github.com/Faultbox/rmf-reader/pkg/math"
	"github.com/Faultbox/rmf-reader/pkg/rmf"
)

// CheckState is the selection state of a node.
type CheckState int

const (
	Unchecked CheckState = iota
	Partial
	Checked
)

// String returns a human-readable state name.
func (s CheckState) String() string {
	switch s {
	case Unchecked:
		return "Unchecked"
	case Partial:
		return "Partial"
	case Checked:
		return "Checked"
	default:
		return fmt.Sprintf("CheckState(%d)", int(s))
	}
}

// Kind identifies what a node represents.
type Kind int

const (
	KindScene Kind = iota
	KindGroup
	KindModel
	KindPlacement
	KindRegion
	KindPermutation
)

var kindNames = [...]string{"Scene", "Group", "Model", "Placement", "Region", "Permutation"}

// String returns a human-readable kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Node is one entry of the selection tree. Every node starts Checked.
type Node struct {
	Kind     Kind
	Label    string
	Path     string // group path, "." for the root
	State    CheckState
	Children []*Node

	parent      *Node
	model       *rmf.Model
	placements  []*rmf.Placement // outermost first
	region      *rmf.Region
	permutation *rmf.Permutation
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Selected reports whether the node is at least partially checked.
func (n *Node) Selected() bool { return n.State != Unchecked }

// Model returns the model of a Model or Placement node, or the owning model
// of a Region or Permutation node.
func (n *Node) Model() *rmf.Model {
	for p := n; p != nil; p = p.parent {
		if p.model != nil {
			return p.model
		}
	}
	return nil
}

// Region returns the region of a Region node or the owning region of a
// Permutation node.
func (n *Node) Region() *rmf.Region {
	if n.region != nil {
		return n.region
	}
	if n.parent != nil {
		return n.parent.region
	}
	return nil
}

// Permutation returns the permutation of a Permutation node.
func (n *Node) Permutation() *rmf.Permutation { return n.permutation }

// Transform returns the combined transform of the placements wrapping a
// model node, or identity for an unplaced model.
func (n *Node) Transform() math.Mat4 {
	m := math.Identity()
	for _, p := range n.placements {
		m = m.Mul(p.Transform)
	}
	return m
}

// Toggle sets the node and every descendant to Checked, or to Unchecked if
// the node was already Checked.
func (n *Node) Toggle() {
	if n.State == Checked {
		n.SetState(Unchecked)
	} else {
		n.SetState(Checked)
	}
}

// SetState sets the node and every descendant to state, then refreshes the
// ancestors.
func (n *Node) SetState(state CheckState) {
	n.walk(func(c *Node) { c.State = state })
	if n.parent != nil {
		n.parent.refresh()
	}
}

// refresh recomputes the state of n from its children, then of n's ancestors.
func (n *Node) refresh() {
	if len(n.Children) == 0 {
		return
	}
	state := n.Children[0].State
	for _, c := range n.Children[1:] {
		if c.State != state {
			state = Partial
			break
		}
	}
	n.State = state
	if n.parent != nil {
		n.parent.refresh()
	}
}

// walk calls fn for n and every descendant, depth first.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// Filter is a selection tree over one scene.
type Filter struct {
	Root  *Node
	scene *rmf.Scene
}

// New builds a fully checked selection tree for scene. A scene without a
// node hierarchy gets one model node per entry of the model pool.
func New(scene *rmf.Scene) *Filter {
	root := &Node{Kind: KindScene, Label: scene.Name, Path: ".", State: Checked}
	if scene.Root != nil {
		addGroupContents(root, scene, scene.Root)
	} else {
		for _, m := range scene.Models {
			root.Children = append(root.Children, newModelNode(root, m, nil))
		}
	}
	return &Filter{Root: root, scene: scene}
}

func addGroupContents(n *Node, scene *rmf.Scene, g *rmf.SceneGroup) {
	for _, child := range g.Groups {
		path := child.Name
		if n.Path != "." {
			path = n.Path + "/" + child.Name
		}
		node := &Node{Kind: KindGroup, Label: child.Name, Path: path, State: Checked, parent: n}
		addGroupContents(node, scene, child)
		n.Children = append(n.Children, node)
	}

	for _, obj := range g.Objects {
		var placements []*rmf.Placement
		for {
			p, ok := obj.(*rmf.Placement)
			if !ok {
				break
			}
			placements = append(placements, p)
			obj = p.Object
		}
		ref, ok := obj.(*rmf.ModelRef)
		if !ok || ref.ModelIndex < 0 || ref.ModelIndex >= len(scene.Models) {
			continue
		}
		n.Children = append(n.Children, newModelNode(n, scene.Models[ref.ModelIndex], placements))
	}
}

func newModelNode(parent *Node, m *rmf.Model, placements []*rmf.Placement) *Node {
	node := &Node{
		Kind:       KindModel,
		Label:      m.Name,
		State:      Checked,
		parent:     parent,
		model:      m,
		placements: placements,
	}
	if len(placements) > 0 {
		node.Kind = KindPlacement
		if placements[0].Name != "" {
			node.Label = placements[0].Name
		}
	}

	for _, r := range m.Regions {
		rn := &Node{Kind: KindRegion, Label: r.Name, State: Checked, parent: node, region: r}
		for _, p := range r.Permutations {
			rn.Children = append(rn.Children, &Node{
				Kind:        KindPermutation,
				Label:       p.Name,
				State:       Checked,
				parent:      rn,
				permutation: p,
			})
		}
		node.Children = append(node.Children, rn)
	}
	return node
}

// Permutations returns every permutation node in tree order.
func (f *Filter) Permutations() []*Node {
	var out []*Node
	f.Root.walk(func(n *Node) {
		if n.Kind == KindPermutation {
			out = append(out, n)
		}
	})
	return out
}

// SelectedModels returns the selected model and placement nodes whose
// ancestors are all selected.
func (f *Filter) SelectedModels() []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(n *Node) {
		for _, c := range n.Children {
			if !c.Selected() {
				continue
			}
			switch c.Kind {
			case KindGroup:
				visit(c)
			case KindModel, KindPlacement:
				out = append(out, c)
			}
		}
	}
	if f.Root.Selected() {
		visit(f.Root)
	}
	return out
}

// SelectedPermutations returns the selected permutation nodes of the
// selected regions of model node n.
func SelectedPermutations(n *Node) []*Node {
	var out []*Node
	for _, r := range n.Children {
		if !r.Selected() {
			continue
		}
		for _, p := range r.Children {
			if p.Selected() {
				out = append(out, p)
			}
		}
	}
	return out
}

// SelectedMeshes returns the meshes covered by every selected permutation.
func (f *Filter) SelectedMeshes() []*rmf.Mesh {
	var out []*rmf.Mesh
	for _, m := range f.SelectedModels() {
		for _, p := range SelectedPermutations(m) {
			out = append(out, p.permutation.Meshes(m.model)...)
		}
	}
	return out
}

// SelectedMaterials returns the pool indices of materials used by selected
// meshes, in ascending order.
func (f *Filter) SelectedMaterials() []int {
	ids := make(map[int]bool)
	for _, mesh := range f.SelectedMeshes() {
		for _, seg := range mesh.Segments {
			if seg.MaterialIndex >= 0 && seg.MaterialIndex < len(f.scene.Materials) {
				ids[seg.MaterialIndex] = true
			}
		}
	}
	return sortedKeys(ids)
}

// SelectedTextures returns the pool indices of textures used by selected
// materials, in ascending order.
func (f *Filter) SelectedTextures() []int {
	ids := make(map[int]bool)
	for _, mi := range f.SelectedMaterials() {
		for _, tm := range f.scene.Materials[mi].TextureMappings {
			if tm.TextureIndex >= 0 && tm.TextureIndex < len(f.scene.Textures) {
				ids[tm.TextureIndex] = true
			}
		}
	}
	return sortedKeys(ids)
}

// Counts summarizes a selection.
type Counts struct {
	Models       int
	Permutations int
	Meshes       int
	Triangles    int
	Materials    int
	Textures     int
}

// Counts returns the size of the current selection. Triangles are counted
// for meshes whose index buffer layout describes triangles.
func (f *Filter) Counts() Counts {
	models := f.SelectedModels()
	c := Counts{
		Models:    len(models),
		Materials: len(f.SelectedMaterials()),
		Textures:  len(f.SelectedTextures()),
	}
	for _, m := range models {
		perms := SelectedPermutations(m)
		c.Permutations += len(perms)
		for _, p := range perms {
			for _, mesh := range p.permutation.Meshes(m.model) {
				c.Meshes++
				if ib := f.scene.MeshIndexBuffer(mesh); ib != nil {
					if n, err := ib.CountMeshTriangles(mesh); err == nil {
						c.Triangles += n
					}
				}
			}
		}
	}
	return c
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
