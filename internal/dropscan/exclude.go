package dropscan

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ExcludeSet reports whether a block has already been recovered (via a
// prior catalog-guided unload) and should be skipped during a drop-scan
// pass, corresponding to the original's `.rec`/EXCLUDE_PAGES_IDXFILE
// bookkeeping. Its on-disk byte layout was left undefined by spec.md
// pending domain-owner confirmation (SPEC_FULL.md §9); this module
// defines only the interface plus an in-memory/CSV-backed
// implementation, not a byte-exact port of the original file format.
type ExcludeSet interface {
	Contains(blockNo uint32) bool
}

// memExcludeSet is a simple in-memory ExcludeSet, also the decode
// target for ReadExcludeCSV.
type memExcludeSet map[uint32]struct{}

func (m memExcludeSet) Contains(blockNo uint32) bool {
	_, ok := m[blockNo]
	return ok
}

// NewExcludeSet returns an ExcludeSet over an explicit block-number list.
func NewExcludeSet(blocks []uint32) ExcludeSet {
	m := make(memExcludeSet, len(blocks))
	for _, b := range blocks {
		m[b] = struct{}{}
	}
	return m
}

// ReadExcludeCSV reads one block number per line — this module's own
// plain-text stand-in for the original's unspecified `.rec` layout.
func ReadExcludeCSV(r io.Reader) (ExcludeSet, error) {
	m := memExcludeSet{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		n, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "dropscan: bad block number %q in exclude file", line)
		}
		m[uint32(n)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "dropscan: scanning exclude file")
	}
	return m, nil
}
