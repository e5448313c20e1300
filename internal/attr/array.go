package attr

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
)

// elemInfo is the typlen/typalign pair array decoding needs for each
// element type it supports — a narrow slice of pg_type, not the full
// descriptor machinery TupleReader uses for whole rows.
type elemInfo struct {
	typLen int16
	align  descriptor.Align
}

var elemInfoByOID = map[uint32]elemInfo{
	OIDBool:    {1, descriptor.AlignChar},
	OIDInt2:    {2, descriptor.AlignShort},
	OIDInt4:    {4, descriptor.AlignInt},
	OIDInt8:    {8, descriptor.AlignDouble},
	OIDFloat4:  {4, descriptor.AlignInt},
	OIDFloat8:  {8, descriptor.AlignDouble},
	OIDText:    {-1, descriptor.AlignInt},
	OIDVarchar: {-1, descriptor.AlignInt},
	OIDUUID:    {16, descriptor.AlignChar},
}

// decodeArray renders a one-dimensional array's raw payload as
// `{e1,e2,...}`, quoting each element per its own family decoder
// (spec.md §4.3). Only the restricted element set in elemInfoByOID is
// supported, matching the "minimum viable" array coverage the spec asks
// for.
func decodeArray(payload []byte, elemOID uint32) (string, error) {
	if len(payload) < 20 {
		return "", errors.Wrap(ErrBadVarlena, "array header truncated")
	}
	ndim := int32(binary.LittleEndian.Uint32(payload[0:4]))
	dataOffset := int32(binary.LittleEndian.Uint32(payload[4:8]))
	if ndim == 0 {
		return "{}", nil
	}
	if ndim != 1 {
		return "", errors.New("attr: only one-dimensional arrays are supported")
	}
	nItems := int32(binary.LittleEndian.Uint32(payload[12:16]))

	cursor := 20
	var nullBitmap []byte
	if dataOffset != 0 {
		bitmapLen := int((nItems + 7) / 8)
		if cursor+bitmapLen > len(payload) {
			return "", errors.Wrap(ErrBadVarlena, "array null bitmap truncated")
		}
		nullBitmap = payload[cursor : cursor+bitmapLen]
		cursor = int(dataOffset)
	}

	info, ok := elemInfoByOID[elemOID]
	if !ok {
		return "", errors.Errorf("attr: unsupported array element type oid=%d", elemOID)
	}

	attr := descriptor.Attr{TypLen: info.typLen, TypAlign: info.align}
	elems := make([]string, 0, nItems)
	for i := int32(0); i < nItems; i++ {
		if nullBitmap != nil && nullBitmap[i/8]&(1<<uint(i%8)) == 0 {
			elems = append(elems, "NULL")
			continue
		}

		shortHeader := attr.IsVarlena() && cursor < len(payload) && payload[cursor]&1 == 1
		if !shortHeader {
			cursor += attr.TypAlign.Pad(cursor)
		}

		var length int
		switch {
		case attr.TypLen > 0:
			length = int(attr.TypLen)
		case attr.IsVarlena():
			hdr, herr := ParseVarlenaHeader(payload[cursor:])
			if herr != nil {
				return "", herr
			}
			length = hdr.PayloadStart + hdr.RawSize
		}
		if cursor+length > len(payload) {
			return "", errors.Wrap(ErrBadVarlena, "array element overruns payload")
		}
		elemRaw := payload[cursor : cursor+length]
		cursor += length

		text, derr := decodeArrayElement(elemOID, elemRaw, attr)
		if derr != nil {
			return "", derr
		}
		if needsArrayQuoting(elemOID) {
			text = quoteArrayElement(text)
		}
		elems = append(elems, text)
	}

	return "{" + strings.Join(elems, ",") + "}", nil
}

func decodeArrayElement(oid uint32, raw []byte, attr descriptor.Attr) (string, error) {
	if attr.IsVarlena() {
		hdr, err := ParseVarlenaHeader(raw)
		if err != nil {
			return "", err
		}
		payload := raw[hdr.PayloadStart : hdr.PayloadStart+hdr.RawSize]
		return decodeVarlenaFamily(oid, payload, 0)
	}
	return decodeFixedFamily(oid, raw, 0)
}

func needsArrayQuoting(oid uint32) bool {
	switch oid {
	case OIDText, OIDVarchar, OIDUUID:
		return true
	default:
		return false
	}
}

func quoteArrayElement(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
