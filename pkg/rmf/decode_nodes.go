package rmf

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	codeModelRef  = "MOD*"
	codePlacement = "PLAC"
)

func (d *decoder) readNode(b *Block) (*SceneGroup, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	group := &SceneGroup{}
	if group.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("node name: %w", err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if group.Groups, err = decodeList(d, props, "NODE", d.readNode); err != nil {
		return nil, fmt.Errorf("node %q: %w", group.Name, err)
	}

	if list, ok := props.Get("OBJE[]"); ok {
		for i, child := range list.Children {
			obj, err := d.readObject(child)
			if err != nil {
				return nil, fmt.Errorf("node %q object %d: %w", group.Name, i, err)
			}
			if obj != nil {
				group.Objects = append(group.Objects, obj)
			}
		}
	}

	if group.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return group, nil
}

// readObject decodes one scene object. Objects of unknown kinds yield nil.
func (d *decoder) readObject(b *Block) (SceneObject, error) {
	switch b.Code {
	case codeModelRef:
		if err := d.r.Seek(b.Start); err != nil {
			return nil, err
		}
		index, err := d.readIndex()
		if err != nil {
			return nil, fmt.Errorf("model reference: %w", err)
		}
		return &ModelRef{ModelIndex: index}, d.checkBody(b)

	case codePlacement:
		p, err := d.readPlacement(b)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	d.log.Debug("skipping unknown scene object", zap.Stringer("block", b))
	return nil, nil
}

func (d *decoder) readPlacement(b *Block) (*Placement, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	p := &Placement{}
	if p.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("placement name: %w", err)
	}
	if p.Flags, err = d.r.ReadI32(); err != nil {
		return nil, fmt.Errorf("placement %q: %w", p.Name, err)
	}
	if p.Transform, err = d.r.ReadMatrix3x4(); err != nil {
		return nil, fmt.Errorf("placement %q transform: %w", p.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	var wrapped *Block
	for _, child := range props.blocks {
		if child.Code != codeModelRef && child.Code != codePlacement {
			continue
		}
		if wrapped != nil {
			return nil, fmt.Errorf("%w: placement %q wraps more than one object", ErrMalformedBlock, p.Name)
		}
		wrapped = child
	}
	if wrapped == nil {
		return nil, fmt.Errorf("%w: placement %q wraps no object", ErrMissingBlock, p.Name)
	}
	if p.Object, err = d.readObject(wrapped); err != nil {
		return nil, fmt.Errorf("placement %q: %w", p.Name, err)
	}

	if p.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return p, nil
}
