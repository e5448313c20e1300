package page

import (
	"encoding/binary"
	"testing"
)

func buildHeader(buf []byte, lower, upper, special, version uint16) {
	binary.LittleEndian.PutUint16(buf[12:14], lower)
	binary.LittleEndian.PutUint16(buf[14:16], upper)
	binary.LittleEndian.PutUint16(buf[16:18], special)
	binary.LittleEndian.PutUint16(buf[18:20], version)
}

func putLinePointer(buf []byte, slot int, offset uint16, flags LPFlags, length uint16) {
	raw := uint32(offset&0x7FFF) | (uint32(flags&0x3) << 15) | (uint32(length&0x7FFF) << 17)
	off := HeaderSize + slot*lpSize
	binary.LittleEndian.PutUint32(buf[off:off+4], raw)
}

// Scenario 1 from spec.md §8: minimal page walk with one int4 tuple.
func TestOpenMinimalPageWalk(t *testing.T) {
	buf := make([]byte, Size)
	buildHeader(buf, 28, 8152, 8192, 0x09A0)
	putLinePointer(buf, 0, 8152, LPNormal, 40)

	p, err := Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.LineCount() != 1 {
		t.Fatalf("expected 1 line pointer, got %d", p.LineCount())
	}
	items := p.Items()
	if len(items) != 1 || items[0].Offset != 8152 || items[0].Length != 40 {
		t.Fatalf("unexpected item: %+v", items)
	}
	b, err := p.ItemBytes(items[0])
	if err != nil {
		t.Fatalf("ItemBytes: %v", err)
	}
	if len(b) != 40 {
		t.Fatalf("expected 40-byte item, got %d", len(b))
	}
}

func TestOpenRejectsMalformedHeader(t *testing.T) {
	buf := make([]byte, Size)
	buildHeader(buf, 100, 50, 8192, 1) // lower > upper
	if _, err := Open(buf); err == nil {
		t.Fatalf("expected error for lower > upper")
	}
}

func TestOpenNewEmptyPage(t *testing.T) {
	buf := make([]byte, Size)
	p, err := Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !p.IsNewEmpty() {
		t.Fatalf("expected all-zero page to be reported empty")
	}
	if len(p.Items()) != 0 {
		t.Fatalf("expected no items on empty page")
	}
}

func TestItemsSkipUnusedAndDead(t *testing.T) {
	buf := make([]byte, Size)
	buildHeader(buf, HeaderSize+4*lpSize, 8100, 8192, 1)
	putLinePointer(buf, 0, 0, LPUnused, 0)
	putLinePointer(buf, 1, 8100, LPNormal, 50)
	putLinePointer(buf, 2, 0, LPDead, 0)
	putLinePointer(buf, 3, 0, LPRedirect, 0)

	p, err := Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 yielded items (normal+redirect), got %d", len(items))
	}
	if items[0].Flags != LPNormal || items[1].Flags != LPRedirect {
		t.Fatalf("unexpected item order/flags: %+v", items)
	}
}

func TestItemBytesBoundsChecked(t *testing.T) {
	buf := make([]byte, Size)
	buildHeader(buf, HeaderSize+lpSize, 8192, 8192, 1)
	putLinePointer(buf, 0, 8190, LPNormal, 20) // overruns special
	p, err := Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	items := p.Items()
	if _, err := p.ItemBytes(items[0]); err == nil {
		t.Fatalf("expected bounds error")
	}
}

// Fuzz-style invariant from spec.md §8: for any well-formed page, every
// yielded item lies within [HeaderSize, special).
func TestItemsWithinBounds(t *testing.T) {
	buf := make([]byte, Size)
	buildHeader(buf, HeaderSize+3*lpSize, 8000, 8192, 1)
	putLinePointer(buf, 0, 7990, LPNormal, 10)
	putLinePointer(buf, 1, 7980, LPNormal, 8)
	putLinePointer(buf, 2, 7970, LPNormal, 5)

	p, err := Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, lp := range p.Items() {
		if lp.Flags != LPNormal {
			continue
		}
		if int(lp.Offset) < HeaderSize || int(lp.Offset)+int(lp.Length) > int(p.hdr.Special) {
			t.Fatalf("item %+v escapes bounds", lp)
		}
	}
}
