package cache

import (
	"context"
	"sync"
	"time"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
)

// InMemoryJobLock implements the job lease in process memory. Suitable for
// single-instance deployments and tests; clustered deployments need the
// Redis implementation.
type InMemoryJobLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewInMemoryJobLock creates a new in-memory job lock
func NewInMemoryJobLock() *InMemoryJobLock {
	return &InMemoryJobLock{
		leases: make(map[string]time.Time),
	}
}

// Acquire takes the lease for name if nobody holds it or the holder's lease
// has expired
func (l *InMemoryJobLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.leases[name]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.leases[name] = time.Now().Add(ttl)
	return true, nil
}

// Release drops the lease for name
func (l *InMemoryJobLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, name)
	return nil
}

// Ensure InMemoryJobLock implements JobLock
var _ ledgerapp.JobLock = (*InMemoryJobLock)(nil)
