package admission

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultLockStripes = 64

// stripedLocks hands out one of a fixed set of mutexes per IP so that
// evaluations for the same address never interleave.
type stripedLocks struct {
	stripes []sync.Mutex
}

func newStripedLocks(n int) *stripedLocks {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &stripedLocks{stripes: make([]sync.Mutex, n)}
}

func (s *stripedLocks) lock(ip string) func() {
	mu := &s.stripes[xxhash.Sum64String(ip)%uint64(len(s.stripes))]
	mu.Lock()
	return mu.Unlock
}
