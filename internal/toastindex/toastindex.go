// Package toastindex builds and reads the drop-scan sidecar index files
// that let ToastResolver locate TOAST chunks without a catalog: dbf_idx
// (chunk locations) and dbf_fsm (page/first-item offsets), per
// spec.md §6.
//
// Grounded on original_source/tools.c's initToastHashforDs and
// initPageOffsforDs, which read these same tab-delimited layouts on
// demand during a drop-scan run. This package exposes that as a
// standalone builder/reader pair instead of folding it invisibly into
// the first ToastResolver.Fetch, so an index can be built once and
// reused across runs (SPEC_FULL.md's supplemented-features note).
package toastindex

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/toast"
)

// ChunkLocation is one dbf_idx row: where a TOAST chunk physically sits.
type ChunkLocation struct {
	ValueID  uint32
	ChunkSeq int32
	Block    uint32
	Offset   uint16
	Suffix   int
}

// PageOffset is one dbf_fsm row: the first item offset recorded for a
// given page offset in the raw file.
type PageOffset struct {
	PageOffset   int64
	FirstItemOff int
}

// WriteChunkIndex serialises locations as dbf_idx:
// valueid\tchunk_seq\tblock\toffset\tsuffix\n
func WriteChunkIndex(w io.Writer, locations []ChunkLocation) error {
	bw := bufio.NewWriter(w)
	for _, l := range locations {
		if _, err := bw.WriteString(strings.Join([]string{
			strconv.FormatUint(uint64(l.ValueID), 10),
			strconv.FormatInt(int64(l.ChunkSeq), 10),
			strconv.FormatUint(uint64(l.Block), 10),
			strconv.FormatUint(uint64(l.Offset), 10),
			strconv.Itoa(l.Suffix),
		}, "\t") + "\n"); err != nil {
			return errors.Wrap(err, "toastindex: writing dbf_idx row")
		}
	}
	return bw.Flush()
}

// ReadChunkIndex parses a dbf_idx file.
func ReadChunkIndex(r io.Reader) ([]ChunkLocation, error) {
	var out []ChunkLocation
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, errors.Errorf("toastindex: dbf_idx row has %d fields, want 5: %q", len(fields), line)
		}
		valueID, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad valueid")
		}
		chunkSeq, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad chunk_seq")
		}
		block, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad block")
		}
		offset, err := strconv.ParseUint(fields[3], 10, 16)
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad offset")
		}
		suffix, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad suffix")
		}
		out = append(out, ChunkLocation{
			ValueID: uint32(valueID), ChunkSeq: int32(chunkSeq),
			Block: uint32(block), Offset: uint16(offset), Suffix: suffix,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "toastindex: scanning dbf_idx")
	}
	return out, nil
}

// WritePageOffsets serialises offsets as dbf_fsm:
// page_offset\tfirst_item_offset\n
func WritePageOffsets(w io.Writer, offsets []PageOffset) error {
	bw := bufio.NewWriter(w)
	for _, o := range offsets {
		if _, err := bw.WriteString(strconv.FormatInt(o.PageOffset, 10) + "\t" + strconv.Itoa(o.FirstItemOff) + "\n"); err != nil {
			return errors.Wrap(err, "toastindex: writing dbf_fsm row")
		}
	}
	return bw.Flush()
}

// ReadPageOffsets parses a dbf_fsm file.
func ReadPageOffsets(r io.Reader) ([]PageOffset, error) {
	var out []PageOffset
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, errors.Errorf("toastindex: dbf_fsm row has %d fields, want 2: %q", len(fields), line)
		}
		pageOff, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad page_offset")
		}
		itemOff, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrap(err, "toastindex: bad first_item_offset")
		}
		out = append(out, PageOffset{PageOffset: pageOff, FirstItemOff: itemOff})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "toastindex: scanning dbf_fsm")
	}
	return out, nil
}

// ToChunks adapts dbf_idx locations (which carry no payload, only
// coordinates) to toast.Chunk placeholders for a resolver whose
// RelationReader can answer raw block reads — the caller is expected to
// populate Data via a second pass once locations are known.
func ToChunks(locations []ChunkLocation) []toast.Chunk {
	chunks := make([]toast.Chunk, len(locations))
	for i, l := range locations {
		chunks[i] = toast.Chunk{ValueID: l.ValueID, ChunkSeq: l.ChunkSeq, Block: l.Block}
	}
	return chunks
}
