package binio

import (
	"bytes"
	"fmt"

	"golang.org/x/text/transform"
)

// ReadCString reads bytes up to and including a zero terminator and decodes
// them with the reader's legacy encoding (Windows-1252 unless changed).
// Only the oldest ancestor of the scene format stores strings this way.
func (r *Reader) ReadCString() (string, error) {
	start := r.pos
	var raw []byte
	for {
		chunk := r.size - r.pos
		if chunk == 0 {
			r.pos = start
			return "", fmt.Errorf("%w: unterminated string at 0x%X", ErrTruncated, start)
		}
		if chunk > int64(len(r.scratch)) {
			chunk = int64(len(r.scratch))
		}
		buf, err := r.next(int(chunk))
		if err != nil {
			r.pos = start
			return "", err
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			raw = append(raw, buf[:i]...)
			r.pos -= int64(len(buf) - i - 1)
			break
		}
		raw = append(raw, buf...)
	}
	return decodeLegacy(r, raw), nil
}

// decodeLegacy converts raw bytes with the legacy encoding, returning them
// as-is if conversion fails.
func decodeLegacy(r *Reader, raw []byte) string {
	if r.legacy == nil {
		return string(raw)
	}
	result, _, err := transform.Bytes(r.legacy.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(result)
}
