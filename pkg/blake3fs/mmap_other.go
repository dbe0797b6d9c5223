//go:build !linux && !darwin

package blake3fs

import (
	"errors"
	"os"
)

// errMmapUnsupported signals the portable fallback path: HashFile always
// falls back to hashBuffer on platforms without an mmap implementation
// wired up here (spec.md §4.1 notes Windows is out of the mmap fast path;
// see SPEC_FULL.md §6.1).
var errMmapUnsupported = errors.New("blake3fs: mmap not implemented on this platform")

func mmapFile(_ *os.File, _ int64) ([]byte, error) {
	return nil, errMmapUnsupported
}

func munmapFile(_ []byte) error {
	return nil
}
