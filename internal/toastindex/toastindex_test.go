package toastindex

import (
	"bytes"
	"testing"
)

func TestChunkIndexRoundTrip(t *testing.T) {
	locations := []ChunkLocation{
		{ValueID: 7, ChunkSeq: 0, Block: 100, Offset: 24, Suffix: 0},
		{ValueID: 7, ChunkSeq: 1, Block: 100, Offset: 2048, Suffix: 0},
	}
	var buf bytes.Buffer
	if err := WriteChunkIndex(&buf, locations); err != nil {
		t.Fatalf("WriteChunkIndex: %v", err)
	}

	got, err := ReadChunkIndex(&buf)
	if err != nil {
		t.Fatalf("ReadChunkIndex: %v", err)
	}
	if len(got) != 2 || got[0] != locations[0] || got[1] != locations[1] {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestPageOffsetsRoundTrip(t *testing.T) {
	offsets := []PageOffset{{PageOffset: 8192, FirstItemOff: 24}, {PageOffset: 16384, FirstItemOff: 48}}
	var buf bytes.Buffer
	if err := WritePageOffsets(&buf, offsets); err != nil {
		t.Fatalf("WritePageOffsets: %v", err)
	}
	got, err := ReadPageOffsets(&buf)
	if err != nil {
		t.Fatalf("ReadPageOffsets: %v", err)
	}
	if len(got) != 2 || got[0] != offsets[0] || got[1] != offsets[1] {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestReadChunkIndexRejectsMalformedRow(t *testing.T) {
	r := bytes.NewBufferString("7\t0\t100\n")
	if _, err := ReadChunkIndex(r); err == nil {
		t.Fatalf("expected error for short row")
	}
}
