// ============================================================================
// internal/marks/locks.go
// Per-roll-number keyed locks for the upsert engine
// ============================================================================

package marks

import "sync"

// keyedMutex serializes operations on the same key (roll number) while
// letting distinct keys proceed in parallel. Entries are reference-counted
// and removed once the last holder unlocks, so the map does not grow with
// the roll-number universe.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLockEntry
}

type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLockEntry)}
}

// Lock acquires the lock for key and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
