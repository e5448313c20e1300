package attr

import "github.com/pkg/errors"

// ErrBadPGLZ reports a PGLZ back-reference that escapes the output
// window being decompressed, per spec.md §4.3.
var ErrBadPGLZ = errors.New("attr: malformed pglz stream")

// DecompressPGLZ implements the source database's PGLZ block format: a
// control byte of 8 bits, each selecting either a literal byte or a
// (offset, length) back-reference into the output produced so far.
//
// Grounded on other_examples' Chocapikk pgdump-offline TOAST reader,
// which reproduces the same control-byte/back-reference shape.
func DecompressPGLZ(data []byte, rawSize int) ([]byte, error) {
	if rawSize < 0 {
		return nil, errors.Wrap(ErrBadPGLZ, "negative rawSize")
	}
	result := make([]byte, 0, rawSize)
	pos := 0

	for pos < len(data) && len(result) < rawSize {
		ctrl := data[pos]
		pos++

		for bit := 0; bit < 8 && pos < len(data) && len(result) < rawSize; bit++ {
			if ctrl&(1<<uint(bit)) != 0 {
				if pos+1 >= len(data) {
					break
				}
				b1, b2 := data[pos], data[pos+1]
				pos += 2

				offset := int(b1) | (int(b2&0xF0) << 4)
				length := int(b2&0x0F) + 3

				if offset == 0 || offset > len(result) {
					return nil, errors.Wrapf(ErrBadPGLZ, "back-reference offset %d escapes window of %d", offset, len(result))
				}

				start := len(result) - offset
				for i := 0; i < length && len(result) < rawSize; i++ {
					result = append(result, result[start+i%offset])
				}
			} else {
				result = append(result, data[pos])
				pos++
			}
		}
	}

	return result, nil
}
