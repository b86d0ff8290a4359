package booking

import (
	"sync"

	"github.com/google/uuid"
)

// doctorLocks serializes check-then-write sequences per doctor. The lock is
// held only across the read-check-write of one booking operation, never
// across unrelated work, so one doctor's burst cannot starve another's.
//
// This protects a single process; the Postgres exclusion constraint is the
// backstop when multiple processes write concurrently.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the doctor's region and returns the unlock func.
func (l *doctorLocks) acquire(doctorID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[doctorID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[doctorID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
