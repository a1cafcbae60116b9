package routingtable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

// TestInMemoryRegistry_ConcurrentLifecycle runs connect/subscribe/unsubscribe/disconnect
// cycles from many goroutines while another goroutine keeps taking snapshots.
// Every snapshot must satisfy the registry invariants.
func TestInMemoryRegistry_ConcurrentLifecycle(t *testing.T) {
	const (
		workers    = 16
		iterations = 200
	)

	r := NewInMemoryRegistry(routingtable.DefaultMaxSubscriptions)
	defer r.Close()

	stop := make(chan struct{})
	snapshotErrs := make(chan error, 1)

	go func() {
		for {
			select {
			case <-stop:
				close(snapshotErrs)
				return
			default:
			}
			for id, patterns := range r.Snapshot() {
				if len(patterns) > routingtable.DefaultMaxSubscriptions {
					snapshotErrs <- fmt.Errorf("%s holds %d patterns", id, len(patterns))
					close(snapshotErrs)
					return
				}
				seen := make(map[string]bool, len(patterns))
				for _, p := range patterns {
					if seen[p] {
						snapshotErrs <- fmt.Errorf("%s holds duplicate %q", id, p)
						close(snapshotErrs)
						return
					}
					seen[p] = true
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				id := routingtable.ConnID(fmt.Sprintf("conn-%d-%d", worker, i))
				if err := r.OnConnect(id); err != nil {
					t.Errorf("OnConnect failed: %v", err)
					return
				}
				for j := 0; j < 12; j++ {
					r.Subscribe(id, fmt.Sprintf("*.site%d.org", j), fmt.Sprintf("site%d.org", j))
				}
				r.Unsubscribe(id, "*.site0.org")
				if i%2 == 0 {
					r.OnDisconnect(id)
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)

	for err := range snapshotErrs {
		t.Fatal(err)
	}

	if got, want := r.ConnectionCount(), workers*iterations/2; got != want {
		t.Errorf("Expected %d remaining connections, got %d", want, got)
	}
}
