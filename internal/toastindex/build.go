package toastindex

import (
	"io"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/attr"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/page"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/tuple"
)

// toastRowShape mirrors toast.toastDescriptor: every TOAST relation is
// (chunk_id oid, chunk_seq int4, chunk_data bytea) regardless of the
// table it backs. Duplicated here rather than exported from the toast
// package, since this package only needs the chunk coordinates, never
// the reassembled payload.
var toastRowShape = &descriptor.Table{
	Name: "pg_toast",
	Attrs: []descriptor.Attr{
		{Name: "chunk_id", TypLen: 4, TypAlign: descriptor.AlignInt, TypeOID: attr.OIDOid},
		{Name: "chunk_seq", TypLen: 4, TypAlign: descriptor.AlignInt, TypeOID: attr.OIDInt4},
		{Name: "chunk_data", TypLen: -1, TypAlign: descriptor.AlignInt, TypeOID: attr.OIDBytea},
	},
}

// BlockReader is the minimal page source BuildIndex needs — satisfied
// by toast.RelationReader, kept as a separate (structurally identical)
// interface.
type BlockReader interface {
	ReadBlock(block uint32) ([]byte, error)
}

// BuildIndex scans a TOAST relation's segment file block by block and
// builds the dbf_idx/dbf_fsm sidecar contents described in spec.md §6,
// reproducing original_source/tools.c's initToastHashforDs (chunk
// coordinates) and initPageOffsforDs (first-item-per-page offsets) as a
// standalone, reusable pass instead of folding it into the first
// ToastResolver.Fetch.
func BuildIndex(reader BlockReader, suffix int) (locations []ChunkLocation, offsets []PageOffset, err error) {
	for block := uint32(0); ; block++ {
		buf, rerr := reader.ReadBlock(block)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, nil, errors.Wrapf(rerr, "toastindex: reading block %d", block)
		}

		p, perr := page.Open(buf)
		if perr != nil {
			continue // malformed pages are skipped, not fatal, for an index build
		}

		firstItemOff := -1
		for _, lp := range p.Items() {
			if lp.Flags != page.LPNormal {
				continue
			}
			if firstItemOff == -1 {
				firstItemOff = int(lp.Offset)
			}
			item, ierr := p.ItemBytes(lp)
			if ierr != nil {
				continue
			}
			row, werr := tuple.Walk(item, toastRowShape)
			if werr != nil || len(row) != 3 {
				continue
			}
			if row[0].Null || row[1].Null {
				continue
			}
			valueID := leUint32(row[0].Data)
			chunkSeq := int32(leUint32(row[1].Data))
			locations = append(locations, ChunkLocation{
				ValueID: valueID, ChunkSeq: chunkSeq, Block: block,
				Offset: lp.Offset, Suffix: suffix,
			})
		}
		if firstItemOff >= 0 {
			offsets = append(offsets, PageOffset{
				PageOffset:   int64(block) * page.Size,
				FirstItemOff: firstItemOff,
			})
		}
	}
	return locations, offsets, nil
}

func leUint32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
