package toastindex

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/page"
)

type fakeBlocks [][]byte

func (f fakeBlocks) ReadBlock(block uint32) ([]byte, error) {
	if int(block) >= len(f) {
		return nil, io.EOF
	}
	return f[block], nil
}

func packLP(offset, length uint16) uint32 {
	return uint32(offset&0x7FFF) | (uint32(page.LPNormal&0x3) << 15) | (uint32(length&0x7FFF) << 17)
}

func buildToastPage(valueID uint32, chunkSeq int32, data []byte) []byte {
	item := make([]byte, 24)
	item[22] = 24
	payload := make([]byte, 12+len(data))
	binary.LittleEndian.PutUint32(payload[0:4], valueID)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(chunkSeq))
	binary.LittleEndian.PutUint32(payload[8:12], uint32(4+len(data))<<2) // chunk_data 4-byte varlena header
	copy(payload[12:], data)
	item = append(item, payload...)

	buf := make([]byte, page.Size)
	offset := uint16(page.Size - len(item))
	copy(buf[offset:], item)
	binary.LittleEndian.PutUint16(buf[12:14], page.HeaderSize+4)
	binary.LittleEndian.PutUint16(buf[14:16], offset)
	binary.LittleEndian.PutUint16(buf[16:18], page.Size)
	binary.LittleEndian.PutUint16(buf[18:20], 1)
	binary.LittleEndian.PutUint32(buf[page.HeaderSize:page.HeaderSize+4], packLP(offset, uint16(len(item))))
	return buf
}

func TestBuildIndexCollectsChunkLocationsAndPageOffsets(t *testing.T) {
	blocks := fakeBlocks{
		buildToastPage(42, 0, nil),
		buildToastPage(42, 1, nil),
	}
	locations, offsets, err := BuildIndex(blocks, 0)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("expected 2 chunk locations, got %d", len(locations))
	}
	if locations[0].ValueID != 42 || locations[0].ChunkSeq != 0 {
		t.Fatalf("unexpected first location: %+v", locations[0])
	}
	if locations[1].Block != 1 {
		t.Fatalf("expected second chunk on block 1, got %+v", locations[1])
	}
	if len(offsets) != 2 {
		t.Fatalf("expected a page offset recorded per page, got %d", len(offsets))
	}
}
