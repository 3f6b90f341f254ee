package rmf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rmf-reader/pkg/binio"
	"github.com/Faultbox/rmf-reader/pkg/vectors"
)

// Option configures a decode.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used for debug output during decode.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// decoder carries the state of a single decode. The string table and
// descriptor pool live here and are dropped when Decode returns.
type decoder struct {
	r           *binio.Reader
	log         *zap.Logger
	strings     []string
	descriptors []*vectors.Descriptor
}

// Open decodes the RMF file at path.
func Open(path string, opts ...Option) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening RMF file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat RMF file: %w", err)
	}

	scene, err := Decode(f, info.Size(), opts...)
	if err != nil {
		return nil, err
	}
	scene.SourcePath = path
	return scene, nil
}

// Decode reads a whole scene from size bytes of src. Either the complete
// scene is returned or an error; there is no partial result.
func Decode(src io.ReaderAt, size int64, opts ...Option) (*Scene, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &decoder{
		r:   binio.NewReader(src, size),
		log: o.log,
	}

	root, err := ReadBlock(d.r)
	if err != nil {
		if errors.Is(err, ErrTruncated) || errors.Is(err, ErrMalformedBlock) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMagic, err)
		}
		return nil, err
	}
	if root.Code != Magic || root.IsList || d.r.Position() != root.End {
		return nil, fmt.Errorf("%w: root block %s", ErrInvalidMagic, root)
	}

	scene, err := d.readScene(root)
	if err != nil {
		return nil, err
	}
	if err := validate(scene); err != nil {
		return nil, err
	}

	d.log.Debug("decoded scene",
		zap.String("name", scene.Name),
		zap.Stringer("version", scene.Version),
		zap.Int("models", len(scene.Models)),
		zap.Int("vertexBuffers", len(scene.VertexBuffers)),
		zap.Int("indexBuffers", len(scene.IndexBuffers)),
		zap.Int("materials", len(scene.Materials)),
		zap.Int("textures", len(scene.Textures)),
	)
	return scene, nil
}

func (d *decoder) readScene(root *Block) (*Scene, error) {
	r := d.r
	if err := r.Seek(root.Start); err != nil {
		return nil, err
	}

	scene := &Scene{}
	version, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("scene version: %w", err)
	}
	scene.Version = Version{version[0], version[1], version[2], version[3]}
	if scene.UnitScale, err = r.ReadF32(); err != nil {
		return nil, fmt.Errorf("scene unit scale: %w", err)
	}
	if scene.WorldMatrix, err = r.ReadMatrix3x3(); err != nil {
		return nil, fmt.Errorf("scene world matrix: %w", err)
	}
	// the name is a string reference, resolved once STRS has been read
	nameRef, err := r.ReadI32()
	if err != nil {
		return nil, fmt.Errorf("scene name: %w", err)
	}
	if err := d.checkBody(root); err != nil {
		return nil, err
	}

	props, err := d.readProps(r.Position(), root.End)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	if err := d.readStringTable(props); err != nil {
		return nil, err
	}
	if scene.Name, err = d.lookupString(nameRef); err != nil {
		return nil, fmt.Errorf("scene name: %w", err)
	}

	if b, ok := props.Get("NODE"); ok {
		if scene.Root, err = d.readNode(b); err != nil {
			return nil, fmt.Errorf("scene nodes: %w", err)
		}
	}
	if scene.Markers, err = decodeList(d, props, "MARK", d.readMarker); err != nil {
		return nil, err
	}
	if scene.Models, err = decodeList(d, props, "MODL", d.readModel); err != nil {
		return nil, err
	}
	if d.descriptors, err = decodeList(d, props, "VECD", d.readDescriptor); err != nil {
		return nil, err
	}
	if scene.VertexBuffers, err = decodeList(d, props, "VBUF", d.readVertexBuffer); err != nil {
		return nil, err
	}
	if scene.IndexBuffers, err = decodeList(d, props, "IBUF", d.readIndexBuffer); err != nil {
		return nil, err
	}
	if scene.Materials, err = decodeList(d, props, "MATL", d.readMaterial); err != nil {
		return nil, err
	}
	if scene.Textures, err = decodeList(d, props, "BITM", d.readTexture); err != nil {
		return nil, err
	}
	if scene.Properties, err = d.readCustom(props); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	return scene, nil
}

// readProps reads the sibling blocks between start and end and indexes them
// by code.
func (d *decoder) readProps(start, end int64) (*blockSet, error) {
	if err := d.r.Seek(start); err != nil {
		return nil, err
	}
	blocks, err := readBlocks(d.r, end)
	if err != nil {
		return nil, err
	}

	set := newBlockSet(blocks)
	if len(set.byCode) != len(blocks) && d.log.Core().Enabled(zap.DebugLevel) {
		d.log.Debug("duplicate sibling blocks, using the first of each", zap.Strings("codes", set.Codes()))
	}
	return set, nil
}

// readEntity reads the property blocks of an entity whose whole body is a run
// of siblings, and positions the cursor at its required ATTR block.
func (d *decoder) readEntity(b *Block) (*blockSet, *Block, error) {
	props, err := d.readProps(b.Start, b.End)
	if err != nil {
		return nil, nil, err
	}
	attr, ok := props.Get("ATTR")
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has no ATTR", ErrMissingBlock, b.Code)
	}
	if err := d.r.Seek(attr.Start); err != nil {
		return nil, nil, err
	}
	return props, attr, nil
}

// checkBody fails if reading a block's fixed layout ran past its end.
func (d *decoder) checkBody(b *Block) error {
	if d.r.Position() > b.End {
		return fmt.Errorf("%w: %s read to 0x%X past its end 0x%X", ErrMalformedBlock, b.Code, d.r.Position(), b.End)
	}
	return nil
}

// readCount reads an i32 element count and bounds it by the bytes left in b.
func (d *decoder) readCount(b *Block) (int, error) {
	n, err := d.r.ReadI32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int64(n) > b.End-d.r.Position() {
		return 0, fmt.Errorf("%w: %s declares %d elements", ErrMalformedBlock, b.Code, n)
	}
	return int(n), nil
}

// readIndex reads an i32 pool index; -1 means none.
func (d *decoder) readIndex() (int, error) {
	n, err := d.r.ReadI32()
	return int(n), err
}

func (d *decoder) readStringTable(props *blockSet) error {
	b, ok := props.Get("STRS")
	if !ok {
		return nil
	}
	if err := d.r.Seek(b.Start); err != nil {
		return err
	}
	count, err := d.readCount(b)
	if err != nil {
		return fmt.Errorf("string table: %w", err)
	}
	d.strings = make([]string, count)
	for i := range d.strings {
		if d.strings[i], err = d.r.ReadString(); err != nil {
			return fmt.Errorf("string table entry %d: %w", i, err)
		}
	}
	d.log.Debug("read string table", zap.Int("count", count))
	return d.checkBody(b)
}

func (d *decoder) lookupString(ref int32) (string, error) {
	if ref == -1 {
		return "", nil
	}
	if ref < -1 || int(ref) >= len(d.strings) {
		return "", fmt.Errorf("%w: string %d of %d", ErrInvalidReference, ref, len(d.strings))
	}
	return d.strings[ref], nil
}

func (d *decoder) readStringRef() (string, error) {
	ref, err := d.r.ReadI32()
	if err != nil {
		return "", err
	}
	return d.lookupString(ref)
}

// decodeList decodes the optional typed list code[] from props with fn. Every
// element must carry the list's element code, since skipping one would shift
// the indices other entities refer to.
func decodeList[T any](d *decoder, props *blockSet, code string, fn func(*Block) (T, error)) ([]T, error) {
	list, ok := props.Get(code + "[]")
	if !ok {
		return nil, nil
	}

	out := make([]T, 0, len(list.Children))
	for i, child := range list.Children {
		if child.Code != code {
			return nil, fmt.Errorf("%w: %s element %d is %q", ErrMalformedBlock, list.Code, i, child.Code)
		}
		v, err := fn(child)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", code, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
