package rmf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/rmf-reader/pkg/binio"
)

// ReadEmbeddedData reads the bytes located by data from src.
func ReadEmbeddedData(src io.ReaderAt, data EmbeddedData) ([]byte, error) {
	if data.Address < 0 || data.Size < 0 {
		return nil, fmt.Errorf("%w: embedded data @%X+%X", ErrInvalidReference, data.Address, data.Size)
	}
	r := binio.NewReader(src, data.Address+data.Size)
	if err := r.Seek(data.Address); err != nil {
		return nil, err
	}
	return r.ReadBytes(int(data.Size))
}

// ReadEmbeddedDataFile opens path and reads the bytes located by data.
func ReadEmbeddedDataFile(path string, data EmbeddedData) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening RMF file: %w", err)
	}
	defer f.Close()

	return ReadEmbeddedData(f, data)
}

// TextureData fetches the embedded bytes of tex from the file the scene was
// opened from. It returns nil for textures without embedded data.
func (s *Scene) TextureData(tex *Texture) ([]byte, error) {
	if tex.Data == nil {
		return nil, nil
	}
	if s.SourcePath == "" {
		return nil, errors.New("scene was not opened from a file")
	}
	return ReadEmbeddedDataFile(s.SourcePath, *tex.Data)
}
