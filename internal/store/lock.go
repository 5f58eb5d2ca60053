package store

import "sync"

// pathLocks serializes operations on the same normalized path. The hosting
// transport may invoke tools concurrently; without this, two writers to one
// path could interleave a read-modify-write. Locks are reference counted so
// the map does not grow with the number of paths ever touched.
type pathLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{entries: make(map[string]*lockEntry)}
}

// lock acquires the exclusive lock for rel and returns its release func.
func (l *pathLocks) lock(rel string) func() {
	l.mu.Lock()
	e, ok := l.entries[rel]
	if !ok {
		e = &lockEntry{}
		l.entries[rel] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, rel)
		}
		l.mu.Unlock()
	}
}
