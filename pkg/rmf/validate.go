package rmf

import "fmt"

// validate checks the cross references between decoded entities. Index -1
// means "none" wherever a reference is optional.
func validate(s *Scene) error {
	if s.Root != nil {
		if err := validateGroup(s, s.Root); err != nil {
			return err
		}
	}

	for mi, m := range s.Models {
		if err := validateModel(s, m); err != nil {
			return fmt.Errorf("model %d %q: %w", mi, m.Name, err)
		}
	}

	for mi, mat := range s.Materials {
		for i, tm := range mat.TextureMappings {
			if !inRange(tm.TextureIndex, len(s.Textures)) {
				return fmt.Errorf("%w: material %d %q mapping %d uses texture %d of %d",
					ErrInvalidReference, mi, mat.Name, i, tm.TextureIndex, len(s.Textures))
			}
		}
	}
	return nil
}

func validateGroup(s *Scene, g *SceneGroup) error {
	for _, obj := range g.Objects {
		if err := validateObject(s, obj); err != nil {
			return fmt.Errorf("node %q: %w", g.Name, err)
		}
	}
	for _, child := range g.Groups {
		if err := validateGroup(s, child); err != nil {
			return err
		}
	}
	return nil
}

func validateObject(s *Scene, obj SceneObject) error {
	switch o := obj.(type) {
	case *ModelRef:
		if o.ModelIndex < 0 || o.ModelIndex >= len(s.Models) {
			return fmt.Errorf("%w: model %d of %d", ErrInvalidReference, o.ModelIndex, len(s.Models))
		}
	case *Placement:
		return validateObject(s, o.Object)
	}
	return nil
}

func validateModel(s *Scene, m *Model) error {
	for ri, region := range m.Regions {
		for pi, perm := range region.Permutations {
			if perm.MeshCount < 0 || (perm.MeshCount > 0 &&
				(perm.MeshIndex < 0 || perm.MeshIndex+perm.MeshCount > len(m.Meshes))) {
				return fmt.Errorf("%w: region %d permutation %d meshes %d+%d of %d",
					ErrInvalidReference, ri, pi, perm.MeshIndex, perm.MeshCount, len(m.Meshes))
			}
		}
	}

	if err := validateBones(m.Bones); err != nil {
		return err
	}

	for i, mesh := range m.Meshes {
		if err := validateMesh(s, m, mesh); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	return nil
}

// validateBones checks that every parent chain ends at -1 without a cycle.
func validateBones(bones []*Bone) error {
	for i, bone := range bones {
		if !inRange(bone.ParentIndex, len(bones)) {
			return fmt.Errorf("%w: bone %d %q parent %d of %d",
				ErrInvalidReference, i, bone.Name, bone.ParentIndex, len(bones))
		}
	}

	// a chain longer than the bone count must revisit a bone
	for i := range bones {
		steps := 0
		for p := bones[i].ParentIndex; p != -1; p = bones[p].ParentIndex {
			if steps++; steps > len(bones) {
				return fmt.Errorf("%w: bone %d %q has a cyclic parent chain",
					ErrInvalidReference, i, bones[i].Name)
			}
		}
	}
	return nil
}

func validateMesh(s *Scene, m *Model, mesh *Mesh) error {
	if !inRange(mesh.VertexBufferIndex, len(s.VertexBuffers)) {
		return fmt.Errorf("%w: vertex buffer %d of %d",
			ErrInvalidReference, mesh.VertexBufferIndex, len(s.VertexBuffers))
	}
	if !inRange(mesh.IndexBufferIndex, len(s.IndexBuffers)) {
		return fmt.Errorf("%w: index buffer %d of %d",
			ErrInvalidReference, mesh.IndexBufferIndex, len(s.IndexBuffers))
	}
	if !inRange(mesh.BoneIndex, len(m.Bones)) {
		return fmt.Errorf("%w: bone %d of %d", ErrInvalidReference, mesh.BoneIndex, len(m.Bones))
	}

	// without an index buffer only empty segments are addressable
	available := 0
	if ib := s.MeshIndexBuffer(mesh); ib != nil {
		available = ib.Len()
	}
	for i, seg := range mesh.Segments {
		if seg.IndexStart < 0 || seg.IndexLength < 0 || seg.IndexStart+seg.IndexLength > available {
			return fmt.Errorf("%w: segment %d indices %d+%d of %d",
				ErrInvalidReference, i, seg.IndexStart, seg.IndexLength, available)
		}
		if !inRange(seg.MaterialIndex, len(s.Materials)) {
			return fmt.Errorf("%w: segment %d material %d of %d",
				ErrInvalidReference, i, seg.MaterialIndex, len(s.Materials))
		}
	}
	return nil
}

// inRange reports whether i is -1 or a valid index into n elements.
func inRange(i, n int) bool {
	return i == -1 || (i >= 0 && i < n)
}
