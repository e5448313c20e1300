package attr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// decodeBpchar trims only the trailing padding spaces bpchar's fixed
// width adds; internal spaces are preserved (spec.md §4.3).
func decodeBpchar(payload []byte) string {
	return strings.TrimRight(string(payload), " ")
}

// decodeBytea renders the default hex-escape form, `\x` followed by
// lowercase hex pairs.
func decodeBytea(payload []byte) string {
	var sb strings.Builder
	sb.Grow(2 + len(payload)*2)
	sb.WriteString(`\x`)
	for _, b := range payload {
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// decodeUUID renders the 16 raw bytes as the canonical
// 8-4-4-4-12 hex form.
func decodeUUID(raw []byte) (string, error) {
	if len(raw) < 16 {
		return "", errors.Wrap(ErrBadVarlena, "uuid attribute truncated")
	}
	id, err := uuid.FromBytes(raw[:16])
	if err != nil {
		return "", errors.Wrap(err, "attr: invalid uuid bytes")
	}
	return id.String(), nil
}
