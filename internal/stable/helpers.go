package stable

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/osu-libsync/osu-libsync/internal/hashcache"
)

func atomicAdd(dst *int64, delta int64) {
	if delta == 0 {
		return
	}

	atomic.AddInt64(dst, delta)
}

func atomicAddInt(dst *int64, delta int64) {
	atomicAdd(dst, delta)
}

func newDigestEntry(info os.FileInfo, digest string) hashcache.DigestEntry {
	return hashcache.DigestEntry{
		MtimeSecs: info.ModTime().Unix(),
		Size:      info.Size(),
		Digest:    digest,
	}
}

// progressTracker serializes progress bookkeeping across concurrent set
// workers, since multiple goroutines complete sets interleaved.
type progressTracker struct {
	mu        sync.Mutex
	processed int
}

func (p *progressTracker) increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++

	return p.processed
}
