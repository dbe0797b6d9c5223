//go:build linux || darwin

package blake3fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the file's content read-only, mirroring the teacher's
// per-OS split for filesystem syscalls (safety_linux.go / safety_darwin.go)
// — here both unix platforms share one implementation via golang.org/x/sys.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

// munmapFile releases a mapping created by mmapFile.
func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
