package session

import "sync"

// lockRegistry hands out one mutex per user so that session resolution for
// a single user is serialized while different users proceed in parallel.
// Entries are created lazily and never expire; growth is bounded by the
// number of distinct users seen by this process.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex for the given normalized user id, creating it
// on first access. Creation is guarded by the registry mutex so two
// goroutines can never mint two different locks for the same user.
func (r *lockRegistry) lockFor(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}
