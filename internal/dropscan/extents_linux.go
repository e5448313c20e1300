//go:build linux

package dropscan

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FS_IOC_FIEMAP = _IOWR('f', 11, struct fiemap) on Linux/amd64 and
// arm64; golang.org/x/sys/unix carries the ioctl syscall number and
// Errno but, unlike ext4/btrfs-specific ioctls, no Fiemap struct, so
// the wire shape is defined here from the kernel's fs.h.
const (
	fiemapIoctl      = 0xC020660B
	fiemapExtentLast = 0x00000001
	fiemapMaxLength  = ^uint64(0)
	fiemapBatchSize  = 32
)

type fiemapExtentRaw struct {
	Logical    uint64
	Physical   uint64
	Length     uint64
	Reserved64 [2]uint64
	Flags      uint32
	Reserved   [3]uint32
}

type fiemapReq struct {
	Start         uint64
	Length        uint64
	Flags         uint32
	MappedExtents uint32
	ExtentCount   uint32
	Reserved      uint32
	Extents       [fiemapBatchSize]fiemapExtentRaw
}

// Extent is one physical extent range of a file, as reported by FIEMAP.
type Extent struct {
	Logical  uint64
	Physical uint64
	Length   uint64
}

// ReportExtents lists f's physical extent map via the Linux FIEMAP
// ioctl, reproducing original_source/tools.c's print_file_blocks as an
// optional pre-scan diagnostic. Purely informational: nothing in
// ProcessPage or the engine's classification path consults it.
func ReportExtents(f *os.File) ([]Extent, error) {
	var req fiemapReq
	req.Length = fiemapMaxLength
	req.ExtentCount = fiemapBatchSize

	var out []Extent
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(fiemapIoctl), uintptr(unsafe.Pointer(&req)))
		if errno != 0 {
			return nil, errors.Wrapf(errno, "dropscan: FIEMAP ioctl on %s", f.Name())
		}
		if req.MappedExtents == 0 {
			return out, nil
		}
		sawLast := false
		for i := uint32(0); i < req.MappedExtents; i++ {
			e := req.Extents[i]
			out = append(out, Extent{Logical: e.Logical, Physical: e.Physical, Length: e.Length})
			if e.Flags&fiemapExtentLast != 0 {
				sawLast = true
			}
		}
		if sawLast {
			return out, nil
		}
		last := out[len(out)-1]
		req.Start = last.Logical + last.Length
		req.MappedExtents = 0
	}
}
