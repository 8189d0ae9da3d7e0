package service

import (
	"fmt"
	"sync"

	"github.com/Strob0t/AgentForge/internal/domain"
)

// PortAllocator hands out agent ports from a fixed range. Claims held by
// in-flight deployments are tracked here; ports held by already running
// agents are passed in by the caller from the registry. Scan and claim
// happen in one critical section so two concurrent deployments can never
// pick the same port.
type PortAllocator struct {
	mu      sync.Mutex
	base    int
	max     int
	claimed map[int]struct{}
}

// NewPortAllocator creates an allocator over [base, max].
func NewPortAllocator(base, max int) *PortAllocator {
	return &PortAllocator{base: base, max: max, claimed: make(map[int]struct{})}
}

// Claim returns the lowest free port not in inUse and not already
// claimed. The returned port stays claimed until Release is called.
func (a *PortAllocator) Claim(inUse map[int]struct{}) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := a.base; port <= a.max; port++ {
		if _, held := a.claimed[port]; held {
			continue
		}
		if _, held := inUse[port]; held {
			continue
		}
		a.claimed[port] = struct{}{}
		return port, nil
	}
	return 0, fmt.Errorf("%w: no free port in range %d-%d", domain.ErrUnavailable, a.base, a.max)
}

// Release frees a previously claimed port. Releasing an unclaimed port
// is a no-op.
func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.claimed, port)
}
