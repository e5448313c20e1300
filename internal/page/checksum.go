package page

import "encoding/binary"

// Checksum reproduces the source database's FNV-1a-style, 32-lane page
// checksum bit-for-bit. The constants below are reproduced verbatim from
// the reference implementation (see DESIGN.md).
const (
	nSums   = 32
	fnvPrime = 16777619
)

// baseOffsets seeds each of the 32 parallel FNV-style lanes into a
// different initial state.
var baseOffsets = [nSums]uint32{
	0x5B1F36E9, 0xB8525960, 0x02AB50AA, 0x1DE66D2A,
	0x79FF467A, 0x9BB9F8A3, 0x217E7CD2, 0x83E13D2C,
	0xF8D4474F, 0xE39EB970, 0x42C6AE16, 0x993216FA,
	0x7B093B5D, 0x98DAFF3C, 0xF718902A, 0x0B1C9CDB,
	0xE58F764B, 0x187636BC, 0x5D7B3BB1, 0xE73DE7DE,
	0x92BEC979, 0xCCA6C0B2, 0x304A0979, 0x85AA43D4,
	0x783125BB, 0x6CA8EAA2, 0xE407EAC6, 0x4B5CFC3E,
	0x9FBF8C76, 0x15CA20BE, 0xF2CA9FD3, 0x959BD756,
}

func comp(sum, value uint32) uint32 {
	t := sum ^ value
	return t*fnvPrime ^ (t >> 17)
}

// rawChecksum treats the page as 64 rows of 32 little-endian uint32
// columns (with the stored checksum field zeroed) and folds the 32
// parallel lanes together with two rounds of zero-word mixing.
func rawChecksum(buf []byte) uint32 {
	var scratch [Size]byte
	copy(scratch[:], buf)
	binary.LittleEndian.PutUint16(scratch[8:10], 0) // zero the checksum field

	sums := baseOffsets

	const wordsPerRow = nSums
	const rowBytes = wordsPerRow * 4
	rows := Size / rowBytes
	for i := 0; i < rows; i++ {
		base := i * rowBytes
		for j := 0; j < nSums; j++ {
			w := binary.LittleEndian.Uint32(scratch[base+j*4 : base+j*4+4])
			sums[j] = comp(sums[j], w)
		}
	}
	for round := 0; round < 2; round++ {
		for j := 0; j < nSums; j++ {
			sums[j] = comp(sums[j], 0)
		}
	}

	var result uint32
	for _, s := range sums {
		result ^= s
	}
	return result
}

// Checksum computes the page checksum and folds in the block number, as
// the source database does when persisting pd_checksum. Callers compare
// the result against the stored Header.Checksum.
func Checksum(buf []byte, blockNo uint32) uint16 {
	raw := rawChecksum(buf)
	return uint16((raw ^ blockNo) & 0xFFFF)
}

// VerifyChecksum reports whether the page's stored checksum matches the
// freshly computed one for the given block number.
func VerifyChecksum(buf []byte, blockNo uint32) bool {
	stored := binary.LittleEndian.Uint16(buf[8:10])
	return Checksum(buf, blockNo) == stored
}
