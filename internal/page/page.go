// Package page implements the PageWalker: validation and line-pointer
// iteration over a raw 8 KiB heap page, without ever materialising a
// C-style struct over the underlying bytes. Every accessor bounds-checks
// on read.
package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// Size is the on-disk page size in bytes.
	Size = 8192

	// HeaderSize is the size of the fixed page header preceding the
	// line-pointer directory.
	HeaderSize = 24

	// lpSize is the size of one packed line-pointer entry.
	lpSize = 4
)

// LPFlags is the 2-bit flags field of a line pointer.
type LPFlags uint8

const (
	LPUnused LPFlags = iota
	LPNormal
	LPRedirect
	LPDead
)

// Header is the decoded form of the fixed page header.
type Header struct {
	LSN       uint64
	Checksum  uint16
	Flags     uint16
	Lower     uint16
	Upper     uint16
	Special   uint16
	Version   uint16
	PruneXID  uint32
}

// Page wraps an immutable 8 KiB byte slice with bounds-checked accessors.
// It never copies or retains ownership beyond the caller-supplied buffer;
// the buffer must outlive every LinePointer and item slice taken from it.
type Page struct {
	buf    []byte
	hdr    Header
	nLines int
}

// ErrMalformedHeader is returned by Open when the header violates the
// page invariants (lower/upper/special ordering, minimum lower bound).
var ErrMalformedHeader = errors.New("page: malformed header")

// Open validates buf as a page and returns a Page. An all-zero page is
// accepted and reported via IsNewEmpty; it yields no items.
func Open(buf []byte) (*Page, error) {
	if len(buf) != Size {
		return nil, errors.Errorf("page: buffer must be %d bytes, got %d", Size, len(buf))
	}
	h := parseHeader(buf)

	if allZero(buf[:HeaderSize]) {
		return &Page{buf: buf, hdr: h}, nil
	}

	if h.Lower < HeaderSize || h.Lower > h.Upper || h.Upper > h.Special || int(h.Special) > Size {
		return nil, errors.Wrapf(ErrMalformedHeader, "lower=%d upper=%d special=%d", h.Lower, h.Upper, h.Special)
	}

	n := (int(h.Lower) - HeaderSize) / lpSize
	return &Page{buf: buf, hdr: h, nLines: n}, nil
}

func parseHeader(buf []byte) Header {
	return Header{
		LSN:      binary.LittleEndian.Uint64(buf[0:8]),
		Checksum: binary.LittleEndian.Uint16(buf[8:10]),
		Flags:    binary.LittleEndian.Uint16(buf[10:12]),
		Lower:    binary.LittleEndian.Uint16(buf[12:14]),
		Upper:    binary.LittleEndian.Uint16(buf[14:16]),
		Special:  binary.LittleEndian.Uint16(buf[16:18]),
		Version:  binary.LittleEndian.Uint16(buf[18:20]),
		PruneXID: binary.LittleEndian.Uint32(buf[20:24]),
	}
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// IsNewEmpty reports whether the page was an all-zero (never-initialised)
// buffer.
func (p *Page) IsNewEmpty() bool { return p.hdr.Lower == 0 && p.hdr.Upper == 0 && p.hdr.Special == 0 }

// Header returns the decoded page header.
func (p *Page) Header() Header { return p.hdr }

// LinePointer is one decoded entry from the line-pointer directory.
type LinePointer struct {
	Slot   int
	Offset uint16
	Length uint16
	Flags  LPFlags
}

// rawLinePointer reads line pointer i as its packed uint32 form:
// bits [0:15]=offset, [15:17]=flags, [17:32]=len.
func (p *Page) rawLinePointer(i int) uint32 {
	off := HeaderSize + i*lpSize
	return binary.LittleEndian.Uint32(p.buf[off : off+4])
}

func decodeLP(slot int, raw uint32) LinePointer {
	return LinePointer{
		Slot:   slot,
		Offset: uint16(raw & 0x7FFF),
		Flags:  LPFlags((raw >> 15) & 0x3),
		Length: uint16((raw >> 17) & 0x7FFF),
	}
}

// Items returns every line pointer whose flags are not Unused or Dead,
// in slot order. Redirect slots are yielded with Length == 0.
func (p *Page) Items() []LinePointer {
	out := make([]LinePointer, 0, p.nLines)
	for i := 0; i < p.nLines; i++ {
		lp := decodeLP(i, p.rawLinePointer(i))
		switch lp.Flags {
		case LPUnused, LPDead:
			continue
		case LPRedirect:
			lp.Length = 0
			out = append(out, lp)
		case LPNormal:
			out = append(out, lp)
		}
	}
	return out
}

// LineCount returns the number of slots in the line-pointer directory,
// including unused/dead/redirect slots.
func (p *Page) LineCount() int { return p.nLines }

// ErrItemBounds is returned by ItemBytes when a line pointer's offset/len
// falls outside the page's special-space boundary.
var ErrItemBounds = errors.New("page: item out of bounds")

// ItemBytes returns the raw byte slice for a Normal line pointer, bounds
// checked against the page's special-space boundary.
func (p *Page) ItemBytes(lp LinePointer) ([]byte, error) {
	if lp.Flags != LPNormal || lp.Length == 0 {
		return nil, errors.Wrap(ErrItemBounds, "not a normal item")
	}
	end := int(lp.Offset) + int(lp.Length)
	if int(lp.Offset) < HeaderSize || end > int(p.hdr.Special) || end > len(p.buf) {
		return nil, errors.Wrapf(ErrItemBounds, "slot %d offset=%d len=%d special=%d", lp.Slot, lp.Offset, lp.Length, p.hdr.Special)
	}
	return p.buf[lp.Offset:end], nil
}

// Bytes returns the full underlying page buffer.
func (p *Page) Bytes() []byte { return p.buf }
