// Package tuple implements TupleReader: given an item slice and a
// descriptor.Table, it walks attribute offsets respecting per-attribute
// length/alignment/null-bitmap rules and yields raw attribute slices.
//
// The cursor-advance-and-bounds-check shape here is modeled on the
// teacher's binary row codec (internal/storage/pager/row_codec.go),
// generalised from a fixed 6-tag wire format to the spec's
// typlen/typalign/varlena rules.
package tuple

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
)

// HeaderSize is the fixed prefix before the null-bitmap/user data.
const HeaderSize = 23

const infomaskHasNull = 0x0001

// Header is the decoded fixed prefix of a tuple.
type Header struct {
	Xmin      uint32
	Xmax      uint32
	CidOrXvac uint32
	CTIDBlock uint32
	CTIDOff   uint16
	Infomask2 uint16
	Infomask  uint16
	Hoff      uint8
}

// ParseHeader decodes the fixed 23-byte tuple header prefix.
func ParseHeader(item []byte) (Header, error) {
	if len(item) < HeaderSize {
		return Header{}, errors.Wrap(ErrOverrun, "item shorter than tuple header")
	}
	h := Header{
		Xmin:      binary.LittleEndian.Uint32(item[0:4]),
		Xmax:      binary.LittleEndian.Uint32(item[4:8]),
		CidOrXvac: binary.LittleEndian.Uint32(item[8:12]),
		CTIDBlock: binary.LittleEndian.Uint32(item[12:16]),
		CTIDOff:   binary.LittleEndian.Uint16(item[16:18]),
		Infomask2: binary.LittleEndian.Uint16(item[18:20]),
		Infomask:  binary.LittleEndian.Uint16(item[20:22]),
		Hoff:      item[22],
	}
	return h, nil
}

// HasNullBitmap reports whether the tuple carries a null bitmap.
func (h Header) HasNullBitmap() bool { return h.Infomask&infomaskHasNull != 0 }

// Errors returned by Walk. Never panics on user data — these are plain
// sentinel values the caller inspects with errors.Is.
var (
	ErrBadHoff = errors.New("tuple: hoff misaligned or too small")
	ErrOverrun = errors.New("tuple: attribute walk overruns item")
)

// AttrOverflowError reports that a specific attribute's walk exceeded the
// item's bounds; the remainder of the row is reported NULL rather than
// silently truncated.
type AttrOverflowError struct {
	Index int
}

func (e *AttrOverflowError) Error() string {
	return errors.Errorf("tuple: attribute %d overflows item bounds", e.Index).Error()
}

// RawAttr is one decoded (possibly NULL) attribute slice.
type RawAttr struct {
	Data      []byte // nil when Null
	Null      bool
	Dropped   bool
	BestEffort bool // set when the remainder of the tuple could not be walked
}

// Walk decodes every attribute of item according to tbl, in declaration
// order. It never panics: overflow conditions degrade the remaining
// attributes to NULL with BestEffort set, and the error return carries
// the *AttrOverflowError so the caller can flag the row (spec.md §4.2).
func Walk(item []byte, tbl *descriptor.Table) ([]RawAttr, error) {
	attrs, _, err := WalkFull(item, tbl)
	return attrs, err
}

// WalkFull is Walk plus the count of trailing bytes left in item after
// the last attribute consumed: DropScanEngine's "Matched" classification
// requires this to be exactly zero (spec.md §8 scenario "Matched").
func WalkFull(item []byte, tbl *descriptor.Table) (attrs []RawAttr, trailing int, err error) {
	h, err := ParseHeader(item)
	if err != nil {
		return nil, 0, err
	}

	nAttrs := len(tbl.Attrs)
	bitmapLen := 0
	if h.HasNullBitmap() {
		bitmapLen = (nAttrs + 7) / 8
	}
	minHoff := int(HeaderSize) + bitmapLen
	hoff := int(h.Hoff)
	if hoff < minHoff || hoff%int(alignOf(descriptor.AlignDouble)) != 0 {
		return nil, 0, errors.Wrapf(ErrBadHoff, "hoff=%d min=%d", hoff, minHoff)
	}
	if hoff > len(item) {
		return nil, 0, errors.Wrap(ErrOverrun, "hoff beyond item")
	}

	bitmap := item[HeaderSize:minHoff]
	out := make([]RawAttr, nAttrs)
	cursor := hoff

	var walkErr error
	for i, attr := range tbl.Attrs {
		if walkErr != nil {
			out[i] = RawAttr{Null: true, BestEffort: true}
			continue
		}

		if h.HasNullBitmap() && !bitSet(bitmap, i) {
			out[i] = RawAttr{Null: true}
			continue
		}

		shortHeader := attr.IsVarlena() && cursor < len(item) && item[cursor]&1 == 1
		if !shortHeader {
			cursor += attr.TypAlign.Pad(cursor)
		}

		length, err := attrLength(item, cursor, attr)
		if err != nil {
			walkErr = &AttrOverflowError{Index: i}
			out[i] = RawAttr{Null: true, BestEffort: true}
			continue
		}
		if cursor+length > len(item) {
			walkErr = &AttrOverflowError{Index: i}
			out[i] = RawAttr{Null: true, BestEffort: true}
			continue
		}

		out[i] = RawAttr{Data: item[cursor : cursor+length], Dropped: attr.Dropped}
		cursor += length
	}

	return out, len(item) - cursor, walkErr
}

func alignOf(a descriptor.Align) int {
	switch a {
	case descriptor.AlignShort:
		return 2
	case descriptor.AlignInt:
		return 4
	case descriptor.AlignDouble:
		return 8
	default:
		return 1
	}
}

func bitSet(bitmap []byte, i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(bitmap) {
		return false
	}
	return bitmap[byteIdx]&(1<<uint(i%8)) != 0
}

// attrLength determines the raw byte length of the attribute starting at
// cursor, per spec.md §4.2's typlen rules.
func attrLength(item []byte, cursor int, attr descriptor.Attr) (int, error) {
	switch {
	case attr.TypLen > 0:
		return int(attr.TypLen), nil
	case attr.IsVarlena():
		return varlenaTotalLen(item, cursor)
	case attr.IsCString():
		for i := cursor; i < len(item); i++ {
			if item[i] == 0 {
				return i - cursor + 1, nil
			}
		}
		return 0, errors.New("tuple: unterminated C string attribute")
	default:
		return 0, errors.Errorf("tuple: invalid typlen %d", attr.TypLen)
	}
}

// varlenaTotalLen returns the number of bytes the varlena attribute
// occupies on disk (header + payload), without resolving external/
// compressed payloads — that is AttrDecoder's job.
func varlenaTotalLen(item []byte, cursor int) (int, error) {
	if cursor >= len(item) {
		return 0, errors.Wrap(ErrOverrun, "varlena header beyond item")
	}
	b0 := item[cursor]
	switch {
	case b0&1 == 0: // 4-byte header
		if cursor+4 > len(item) {
			return 0, errors.Wrap(ErrOverrun, "4B varlena header truncated")
		}
		size := int(binary.LittleEndian.Uint32(item[cursor:cursor+4]) >> 2 & 0x3FFFFFFF)
		return size, nil
	case b0 == 0x01: // external: 1-byte header + tag byte + 16-byte pointer
		return 18, nil
	default: // short inline
		size := int(b0>>1) & 0x7F
		return size + 1, nil // header byte + payload
	}
}
