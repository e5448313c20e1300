package attr

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

func decodeBool(raw []byte) (string, error) {
	if len(raw) < 1 {
		return "", errors.Wrap(ErrBadVarlena, "bool attribute empty")
	}
	if raw[0] != 0 {
		return "t", nil
	}
	return "f", nil
}

// decodeInt renders a little-endian fixed-width integer, signed or
// unsigned per the caller (oid/xid render unsigned, per spec.md §4.3).
func decodeInt(raw []byte, width int, signed bool) (string, error) {
	if len(raw) < width {
		return "", errors.Wrapf(ErrBadVarlena, "int%d attribute truncated", width*8)
	}
	switch width {
	case 2:
		u := binary.LittleEndian.Uint16(raw)
		if signed {
			return strconv.FormatInt(int64(int16(u)), 10), nil
		}
		return strconv.FormatUint(uint64(u), 10), nil
	case 4:
		u := binary.LittleEndian.Uint32(raw)
		if signed {
			return strconv.FormatInt(int64(int32(u)), 10), nil
		}
		return strconv.FormatUint(uint64(u), 10), nil
	case 8:
		u := binary.LittleEndian.Uint64(raw)
		if signed {
			return strconv.FormatInt(int64(u), 10), nil
		}
		return strconv.FormatUint(u, 10), nil
	default:
		return "", errors.Errorf("attr: unsupported integer width %d", width)
	}
}

func decodeFloat(raw []byte, width int) (string, error) {
	if len(raw) < width {
		return "", errors.Wrapf(ErrBadVarlena, "float%d attribute truncated", width*8)
	}
	switch width {
	case 4:
		bits := binary.LittleEndian.Uint32(raw)
		return strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', -1, 32), nil
	case 8:
		bits := binary.LittleEndian.Uint64(raw)
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64), nil
	default:
		return "", errors.Errorf("attr: unsupported float width %d", width)
	}
}
