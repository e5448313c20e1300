package attr

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// decodeBitstring renders a bit/varbit payload as an MSB-first string of
// '0'/'1' characters, per spec.md §4.3.
func decodeBitstring(payload []byte) (string, error) {
	if len(payload) < 4 {
		return "", errors.Wrap(ErrBadVarlena, "bit string header truncated")
	}
	bitLen := int(int32(binary.LittleEndian.Uint32(payload[0:4])))
	if bitLen < 0 {
		return "", errors.New("attr: negative bit_len")
	}
	data := payload[4:]
	var sb strings.Builder
	sb.Grow(bitLen)
	for i := 0; i < bitLen; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			return "", errors.Wrap(ErrBadVarlena, "bit string data truncated")
		}
		bit := (data[byteIdx] >> uint(7-i%8)) & 1
		if bit == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}
