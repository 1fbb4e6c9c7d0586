package profile

import (
	"sync"

	"github.com/google/uuid"
)

// Locker serializes writers per profile ID. Meetings processed concurrently
// may update the same profile's running-average stats; a per-profile lock
// keeps those read-modify-write sequences from losing updates while leaving
// meetings over different profiles fully parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the lock for the given profile ID and returns the unlock
// function. Locks are created on first use and kept for the lifetime of the
// Locker; the profile set is small by construction.
func (l *Locker) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
