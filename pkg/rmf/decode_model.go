package rmf

import "fmt"

func (d *decoder) readModel(b *Block) (*Model, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	m := &Model{}
	if m.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("model name: %w", err)
	}
	if m.Flags, err = d.r.ReadI32(); err != nil {
		return nil, fmt.Errorf("model %q flags: %w", m.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if m.Regions, err = decodeList(d, props, "REGN", d.readRegion); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	if m.Markers, err = decodeList(d, props, "MARK", d.readMarker); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	if m.Bones, err = decodeList(d, props, "BONE", d.readBone); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	if m.Meshes, err = decodeList(d, props, "MESH", d.readMesh); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}

	if m.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *decoder) readRegion(b *Block) (*Region, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	region := &Region{}
	if region.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("region name: %w", err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if region.Permutations, err = decodeList(d, props, "PERM", d.readPermutation); err != nil {
		return nil, fmt.Errorf("region %q: %w", region.Name, err)
	}
	if region.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return region, nil
}

func (d *decoder) readPermutation(b *Block) (*Permutation, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	perm := &Permutation{}
	if perm.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("permutation name: %w", err)
	}
	if perm.Instanced, err = d.r.ReadBool(); err != nil {
		return nil, fmt.Errorf("permutation %q: %w", perm.Name, err)
	}
	if perm.MeshIndex, err = d.readIndex(); err != nil {
		return nil, fmt.Errorf("permutation %q: %w", perm.Name, err)
	}
	if perm.MeshCount, err = d.readIndex(); err != nil {
		return nil, fmt.Errorf("permutation %q: %w", perm.Name, err)
	}
	if perm.Transform, err = d.r.ReadMatrix3x4(); err != nil {
		return nil, fmt.Errorf("permutation %q transform: %w", perm.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if perm.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return perm, nil
}

func (d *decoder) readMarker(b *Block) (*Marker, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	marker := &Marker{}
	if marker.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("marker name: %w", err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if marker.Instances, err = decodeList(d, props, "MKIN", d.readMarkerInstance); err != nil {
		return nil, fmt.Errorf("marker %q: %w", marker.Name, err)
	}
	if marker.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return marker, nil
}

func (d *decoder) readMarkerInstance(b *Block) (*MarkerInstance, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	inst := &MarkerInstance{}
	if inst.RegionIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if inst.PermutationIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if inst.BoneIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if inst.Position, err = d.r.ReadVec3(); err != nil {
		return nil, fmt.Errorf("marker instance position: %w", err)
	}
	if inst.Rotation, err = d.r.ReadQuat(); err != nil {
		return nil, fmt.Errorf("marker instance rotation: %w", err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if inst.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return inst, nil
}

func (d *decoder) readBone(b *Block) (*Bone, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	bone := &Bone{}
	if bone.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("bone name: %w", err)
	}
	if bone.ParentIndex, err = d.readIndex(); err != nil {
		return nil, fmt.Errorf("bone %q: %w", bone.Name, err)
	}
	if bone.Transform, err = d.r.ReadMatrix4x4(); err != nil {
		return nil, fmt.Errorf("bone %q transform: %w", bone.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if bone.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return bone, nil
}

func (d *decoder) readMesh(b *Block) (*Mesh, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{}
	if mesh.VertexBufferIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if mesh.IndexBufferIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if mesh.BoneIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if mesh.VertexTransform, err = d.r.ReadMatrix3x4(); err != nil {
		return nil, fmt.Errorf("mesh vertex transform: %w", err)
	}
	if mesh.TextureTransform, err = d.r.ReadMatrix3x4(); err != nil {
		return nil, fmt.Errorf("mesh texture transform: %w", err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if mesh.Segments, err = decodeList(d, props, "MSEG", d.readSegment); err != nil {
		return nil, err
	}
	if mesh.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return mesh, nil
}

func (d *decoder) readSegment(b *Block) (*MeshSegment, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	seg := &MeshSegment{}
	if seg.IndexStart, err = d.readIndex(); err != nil {
		return nil, err
	}
	if seg.IndexLength, err = d.readIndex(); err != nil {
		return nil, err
	}
	if seg.MaterialIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if seg.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return seg, nil
}
