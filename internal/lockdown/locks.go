package lockdown

import "sync"

// IdentityLocks serialises work per device identity. Entries are removed
// when no goroutine holds or waits for them.
type IdentityLocks struct {
	mu    sync.Mutex
	locks map[string]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// NewIdentityLocks creates an empty lock set.
func NewIdentityLocks() *IdentityLocks {
	return &IdentityLocks{locks: make(map[string]*identityLock)}
}

// Lock acquires the lock for identity and returns its release function.
// The release function must be called exactly once.
func (k *IdentityLocks) Lock(identity string) func() {
	k.mu.Lock()
	e, ok := k.locks[identity]
	if !ok {
		e = &identityLock{}
		k.locks[identity] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, identity)
		}
		k.mu.Unlock()
	}
}

// Len returns the number of identities currently locked or waited on.
func (k *IdentityLocks) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
