package toast

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/attr"
)

// encodeLZ4AllLiteral produces a minimal valid LZ4 block consisting of a
// single literal run (no match sequences), which attr.DecompressLZ4
// reverses back to data exactly. Used to build fixtures without a real
// LZ4 encoder.
func encodeLZ4AllLiteral(data []byte) []byte {
	var out bytes.Buffer
	n := len(data)
	if n < 15 {
		out.WriteByte(byte(n << 4))
	} else {
		out.WriteByte(byte(15 << 4))
		rem := n - 15
		for rem >= 255 {
			out.WriteByte(255)
			rem -= 255
		}
		out.WriteByte(byte(rem))
	}
	out.Write(data)
	return out.Bytes()
}

func chunkBytes(b []byte, size int) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		n := size
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

// Scenario 5 from spec.md §8: a TOAST value compressed with LZ4 (20076
// bytes as an all-literal stream) spread across 11 chunks of up to 1996
// bytes, reassembles to its full rawsize.
func TestFetchReassemblesChunkedLZ4Value(t *testing.T) {
	raw := make([]byte, 19996)
	for i := range raw {
		raw[i] = byte(i % 251)
	}
	compressed := encodeLZ4AllLiteral(raw)
	pieces := chunkBytes(compressed, 1996)

	var chunks []Chunk
	for i, p := range pieces {
		chunks = append(chunks, Chunk{ValueID: 7, ChunkSeq: int32(i), Data: p})
	}

	r := New(nil)
	r.PreloadIndex(chunks)

	assembled, err := r.Fetch(0, 7)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(assembled) != len(compressed) {
		t.Fatalf("expected %d reassembled bytes, got %d", len(compressed), len(assembled))
	}

	decompressed, err := attr.DecompressLZ4(assembled[0:], len(raw))
	if err != nil {
		t.Fatalf("DecompressLZ4: %v", err)
	}
	if !bytes.Equal(decompressed, raw) {
		t.Fatalf("round-trip mismatch: got %d bytes", len(decompressed))
	}
}

func TestFetchMissingValueID(t *testing.T) {
	r := New(nil)
	r.PreloadIndex(nil)
	if _, err := r.Fetch(0, 42); err == nil {
		t.Fatalf("expected error for missing valueid")
	}
}

func TestBestGroupPicksLargestByBlockProximity(t *testing.T) {
	chunks := []Chunk{
		{ValueID: 1, ChunkSeq: 0, Block: 100},
		{ValueID: 1, ChunkSeq: 1, Block: 101},
		{ValueID: 1, ChunkSeq: 2, Block: 102},
		// A stale second generation reusing the same valueid, far away.
		{ValueID: 1, ChunkSeq: 0, Block: 9000},
	}
	group := bestGroup(chunks)
	if len(group) != 3 {
		t.Fatalf("expected the 3-chunk group to win, got %d chunks", len(group))
	}
	for _, c := range group {
		if c.Block == 9000 {
			t.Fatalf("stale chunk leaked into winning group: %+v", group)
		}
	}
}

func TestBestGroupSingleSeed(t *testing.T) {
	chunks := []Chunk{
		{ValueID: 1, ChunkSeq: 0, Block: 5},
		{ValueID: 1, ChunkSeq: 1, Block: 5},
	}
	group := bestGroup(chunks)
	if len(group) != 2 {
		t.Fatalf("expected both chunks in the single group, got %d", len(group))
	}
}

// TestFetchDecompressesExternalOnDiskThroughAttr exercises the full
// external-pointer -> Resolver.Fetch -> tcinfo -> Decompress chain. The
// compression ratio itself is not meaningful here (the literal-only LZ4
// fixture cannot actually shrink data); ExtInfo is set independently to
// flag the value as compressed, which is all ExternalPointer.Compressed
// inspects.
func TestFetchDecompressesExternalOnDiskThroughAttr(t *testing.T) {
	raw := bytes.Repeat([]byte("x"), 500)
	compressedPayload := encodeLZ4AllLiteral(raw)

	var tcinfo [4]byte
	binary.LittleEndian.PutUint32(tcinfo[:], uint32(attr.CompressionLZ4)<<30|uint32(len(raw)))
	chunkData := append(append([]byte{}, tcinfo[:]...), compressedPayload...)

	r := New(nil)
	r.PreloadIndex([]Chunk{{ValueID: 3, ChunkSeq: 0, Data: chunkData}})

	var ext [16]byte
	binary.LittleEndian.PutUint32(ext[0:4], uint32(len(raw)+4)) // va_rawsize, includes header
	binary.LittleEndian.PutUint32(ext[4:8], uint32(len(raw)-1)) // extsize < rawsize-4 => compressed
	binary.LittleEndian.PutUint32(ext[8:12], 3)
	binary.LittleEndian.PutUint32(ext[12:16], 0)
	rawAttr := append([]byte{0x01, byte(attr.TagOnDisk)}, ext[:]...)

	got, err := attr.Inline(rawAttr, r)
	if err != nil {
		t.Fatalf("Inline: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("expected decompressed external value to match, got %d bytes", len(got))
	}
}
