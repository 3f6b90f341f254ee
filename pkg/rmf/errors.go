package rmf

import (
	"errors"
	"fmt"

	"github.com/Faultbox/rmf-reader/pkg/binio"
)

// Format errors. Every one of them aborts decoding; no partial scene is returned.
var (
	// ErrFormat is the parent of all structural errors.
	ErrFormat           = errors.New("malformed RMF data")
	ErrInvalidMagic     = fmt.Errorf("%w: not a valid RMF file", ErrFormat)
	ErrMalformedBlock   = fmt.Errorf("%w: malformed block", ErrFormat)
	ErrMissingBlock     = fmt.Errorf("%w: missing required block", ErrFormat)
	ErrInvalidReference = fmt.Errorf("%w: invalid reference", ErrFormat)

	// ErrUnsupportedEncoding is the parent of data encodings this reader cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported RMF encoding")
	ErrInvalidIndexWidth   = fmt.Errorf("%w: invalid index width", ErrUnsupportedEncoding)

	// ErrTruncated is returned when the file ends before a value could be read.
	ErrTruncated = binio.ErrTruncated

	// ErrUnsupportedLayout is returned when triangles are requested from an
	// index buffer whose layout does not describe triangles.
	ErrUnsupportedLayout = errors.New("unsupported index layout")

	// ErrIndexRange is returned for an index range outside its buffer.
	ErrIndexRange = errors.New("index range out of bounds")
)
