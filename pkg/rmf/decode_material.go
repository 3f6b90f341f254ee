package rmf

import (
	"fmt"

	"github.com/Faultbox/rmf-reader/pkg/math"
)

func (d *decoder) readMaterial(b *Block) (*Material, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	mat := &Material{}
	if mat.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("material name: %w", err)
	}
	if mat.AlphaMode, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("material %q alpha mode: %w", mat.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	if mat.TextureMappings, err = decodeList(d, props, "TMAP", d.readTextureMapping); err != nil {
		return nil, fmt.Errorf("material %q: %w", mat.Name, err)
	}
	if mat.Tints, err = decodeList(d, props, "TINT", d.readTint); err != nil {
		return nil, fmt.Errorf("material %q: %w", mat.Name, err)
	}
	if mat.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return mat, nil
}

func (d *decoder) readTextureMapping(b *Block) (*TextureMapping, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	tm := &TextureMapping{}
	if tm.Usage, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("texture mapping usage: %w", err)
	}
	if tm.BlendChannel, err = d.r.ReadI32(); err != nil {
		return nil, err
	}
	if tm.TextureIndex, err = d.readIndex(); err != nil {
		return nil, err
	}
	if tm.ChannelMask, err = d.r.ReadI32(); err != nil {
		return nil, err
	}
	tiling, err := d.r.ReadFloats(2)
	if err != nil {
		return nil, fmt.Errorf("texture mapping tiling: %w", err)
	}
	tm.Tiling = [2]float32{tiling[0], tiling[1]}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}
	if tm.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return tm, nil
}

func (d *decoder) readTint(b *Block) (*Tint, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	tint := &Tint{}
	if tint.Usage, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("tint usage: %w", err)
	}
	if tint.BlendChannel, err = d.r.ReadI32(); err != nil {
		return nil, err
	}
	rgba, err := d.r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("tint color: %w", err)
	}
	tint.Color = math.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}
	if tint.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return tint, nil
}

func (d *decoder) readTexture(b *Block) (*Texture, error) {
	props, attr, err := d.readEntity(b)
	if err != nil {
		return nil, err
	}

	tex := &Texture{}
	if tex.Name, err = d.readStringRef(); err != nil {
		return nil, fmt.Errorf("texture name: %w", err)
	}
	if tex.Gamma, err = d.r.ReadF32(); err != nil {
		return nil, fmt.Errorf("texture %q gamma: %w", tex.Name, err)
	}
	if err := d.checkBody(attr); err != nil {
		return nil, err
	}

	// DATA records where the bytes are; they are fetched on demand
	if data, ok := props.Get("DATA"); ok {
		if err := d.r.Seek(data.Start); err != nil {
			return nil, err
		}
		size, err := d.readCount(data)
		if err != nil {
			return nil, fmt.Errorf("texture %q data: %w", tex.Name, err)
		}
		tex.Data = &EmbeddedData{Address: d.r.Position(), Size: int64(size)}
	}

	if tex.Properties, err = d.readCustom(props); err != nil {
		return nil, err
	}
	return tex, nil
}
