package attr

import "github.com/pkg/errors"

// DecompressLZ4 implements the LZ4 block format (token byte, literal
// run, 16-bit little-endian match offset, match run), per spec.md
// §4.3. Grounded on other_examples' Chocapikk pgdump-offline TOAST
// reader.
func DecompressLZ4(data []byte, rawSize int) ([]byte, error) {
	if len(data) < 1 {
		return nil, errors.New("attr: lz4 stream too short")
	}
	result := make([]byte, 0, rawSize)
	pos := 0

	for pos < len(data) && len(result) < rawSize {
		token := data[pos]
		pos++

		literalLen := int(token >> 4)
		if literalLen == 15 {
			for pos < len(data) {
				extra := int(data[pos])
				pos++
				literalLen += extra
				if extra != 255 {
					break
				}
			}
		}

		if pos+literalLen > len(data) {
			literalLen = len(data) - pos
		}
		result = append(result, data[pos:pos+literalLen]...)
		pos += literalLen

		if pos >= len(data) || len(result) >= rawSize {
			break
		}

		if pos+2 > len(data) {
			break
		}
		offset := int(data[pos]) | (int(data[pos+1]) << 8)
		pos += 2

		if offset == 0 {
			return nil, errors.New("attr: lz4 invalid zero offset")
		}

		matchLen := int(token&0x0F) + 4
		if matchLen == 19 {
			for pos < len(data) {
				extra := int(data[pos])
				pos++
				matchLen += extra
				if extra != 255 {
					break
				}
			}
		}

		if offset > len(result) {
			return nil, errors.Errorf("attr: lz4 match offset %d too large for output of %d", offset, len(result))
		}
		start := len(result) - offset
		for i := 0; i < matchLen && len(result) < rawSize; i++ {
			result = append(result, result[start+i%offset])
		}
	}

	return result, nil
}
