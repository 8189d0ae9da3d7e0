package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/AgentForge/internal/domain"
)

func TestPortAllocatorClaim(t *testing.T) {
	alloc := NewPortAllocator(8001, 8005)

	port, err := alloc.Claim(nil)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if port != 8001 {
		t.Errorf("expected lowest port 8001, got %d", port)
	}

	port, err = alloc.Claim(map[int]struct{}{8002: {}})
	if err != nil {
		t.Fatal(err)
	}
	if port != 8003 {
		t.Errorf("expected 8003 (8001 claimed, 8002 in use), got %d", port)
	}
}

func TestPortAllocatorRelease(t *testing.T) {
	alloc := NewPortAllocator(8001, 8001)

	port, err := alloc.Claim(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := alloc.Claim(nil); err == nil {
		t.Fatal("single-port range should be exhausted")
	}

	alloc.Release(port)
	if _, err := alloc.Claim(nil); err != nil {
		t.Fatalf("released port should be claimable again: %v", err)
	}
}

func TestPortAllocatorExhausted(t *testing.T) {
	alloc := NewPortAllocator(8001, 8002)
	inUse := map[int]struct{}{8001: {}, 8002: {}}

	_, err := alloc.Claim(inUse)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPortAllocatorConcurrentClaims(t *testing.T) {
	const n = 50
	alloc := NewPortAllocator(9000, 9000+n-1)

	var (
		mu    sync.Mutex
		seen  = map[int]int{}
		wg    sync.WaitGroup
		fails int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := alloc.Claim(nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails++
				return
			}
			seen[port]++
		}()
	}
	wg.Wait()

	if fails != 0 {
		t.Fatalf("%d claims failed on a range sized for all of them", fails)
	}
	for port, count := range seen {
		if count != 1 {
			t.Errorf("port %d claimed %d times", port, count)
		}
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct ports, got %d", n, len(seen))
	}
}
