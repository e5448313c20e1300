//go:build !linux

package dropscan

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// Extent is one physical extent range of a file, as reported by FIEMAP.
type Extent struct {
	Logical  uint64
	Physical uint64
	Length   uint64
}

// ReportExtents is Linux-only (FIEMAP is a Linux ioctl); elsewhere it
// reports its own unavailability rather than failing the caller's build.
func ReportExtents(f *os.File) ([]Extent, error) {
	return nil, errors.Errorf("dropscan: physical extent reporting is not supported on %s", runtime.GOOS)
}
