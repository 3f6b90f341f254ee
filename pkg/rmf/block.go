package rmf

import (
	"fmt"

	"github.com/Faultbox/rmf-reader/pkg/binio"
)

const listCode = "list"

// minBlockSize is the smallest possible encoded block: a code and an end address.
const minBlockSize = 8

// Block is one self-describing chunk of the container. Start and End are
// absolute file positions of the body; the header is not included.
type Block struct {
	Code     string // element code with a [] suffix for lists
	IsList   bool
	Start    int64
	End      int64
	Count    int
	Children []*Block
}

// Size returns the body length in bytes.
func (b *Block) Size() int64 {
	return b.End - b.Start
}

// String formats the block as <<CODE>> @start+size.
func (b *Block) String() string {
	name := b.Code
	if b.IsList {
		name = fmt.Sprintf("%s%d]", b.Code[:len(b.Code)-1], b.Count)
	}
	return fmt.Sprintf("<<%s>> @%08X+%08X", name, b.Start, b.Size())
}

// ElementCode returns the code of list elements, or the code itself for
// scalar blocks.
func (b *Block) ElementCode() string {
	if b.IsList {
		return b.Code[:len(b.Code)-2]
	}
	return b.Code
}

// ReadBlock reads one block header at the cursor. List blocks are read
// recursively along with all of their children. On success the cursor is
// left at the block's End regardless of how much of the body was understood.
func ReadBlock(r *binio.Reader) (*Block, error) {
	headerPos := r.Position()

	code, err := readCode(r)
	if err != nil {
		return nil, err
	}

	b := &Block{Code: code}

	if code == listCode {
		elem, err := readCode(r)
		if err != nil {
			return nil, err
		}
		count, err := r.ReadI32()
		if err != nil {
			return nil, err
		}
		// every child needs at least a header, which bounds a sane count
		if count < 0 || int64(count) > r.Remaining()/minBlockSize {
			return nil, fmt.Errorf("%w: list %q at 0x%X declares %d elements", ErrMalformedBlock, elem, headerPos, count)
		}

		b.Code = elem + "[]"
		b.IsList = true
		b.Count = int(count)
		b.Start = r.Position()
		b.Children = make([]*Block, 0, count)
		for i := 0; i < b.Count; i++ {
			child, err := ReadBlock(r)
			if err != nil {
				return nil, fmt.Errorf("%s element %d: %w", b.Code, i, err)
			}
			b.Children = append(b.Children, child)
		}
		b.End = r.Position()
	} else {
		end, err := r.ReadI32()
		if err != nil {
			return nil, err
		}
		b.Start = r.Position()
		b.End = int64(end)
		if b.End < b.Start || b.End > r.Size() {
			return nil, fmt.Errorf("%w: %q at 0x%X ends at 0x%X (body starts 0x%X, file size 0x%X)",
				ErrMalformedBlock, code, headerPos, b.End, b.Start, r.Size())
		}
	}

	if err := r.Seek(b.End); err != nil {
		return nil, err
	}
	return b, nil
}

// readCode reads a four character block code. Codes are printable ASCII.
func readCode(r *binio.Reader) (string, error) {
	pos := r.Position()
	code, err := r.ReadChars(4)
	if err != nil {
		return "", err
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 0x20 || code[i] > 0x7E {
			return "", fmt.Errorf("%w: invalid block code %q at 0x%X", ErrMalformedBlock, code, pos)
		}
	}
	return code, nil
}

// readBlocks reads sibling block headers until end. A sibling that extends
// past end is malformed.
func readBlocks(r *binio.Reader, end int64) ([]*Block, error) {
	var blocks []*Block
	for r.Position() < end {
		b, err := ReadBlock(r)
		if err != nil {
			return nil, err
		}
		if b.End > end {
			return nil, fmt.Errorf("%w: %s overruns its parent ending at 0x%X", ErrMalformedBlock, b, end)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// blockSet indexes sibling blocks by code. When a code repeats, the first
// occurrence wins.
type blockSet struct {
	blocks []*Block
	byCode map[string]*Block
}

func newBlockSet(blocks []*Block) *blockSet {
	s := &blockSet{
		blocks: blocks,
		byCode: make(map[string]*Block, len(blocks)),
	}
	for _, b := range blocks {
		if _, ok := s.byCode[b.Code]; !ok {
			s.byCode[b.Code] = b
		}
	}
	return s
}

// Get returns the block with the given code.
func (s *blockSet) Get(code string) (*Block, bool) {
	b, ok := s.byCode[code]
	return b, ok
}

// Codes returns every code present, in file order, without duplicates.
func (s *blockSet) Codes() []string {
	codes := make([]string, 0, len(s.byCode))
	seen := make(map[string]bool, len(s.byCode))
	for _, b := range s.blocks {
		if !seen[b.Code] {
			seen[b.Code] = true
			codes = append(codes, b.Code)
		}
	}
	return codes
}
