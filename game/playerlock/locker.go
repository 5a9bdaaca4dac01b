// Package playerlock serializes mutations of one player's state.
package playerlock

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker is a keyed mutex over player IDs. Entries are dropped once no
// goroutine holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[int64]*lockEntry)}
}

// Lock blocks until the caller owns playerID and returns the matching unlock.
func (l *Locker) Lock(playerID int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[playerID]
	if !ok {
		e = &lockEntry{}
		l.locks[playerID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, playerID)
			}
			l.mu.Unlock()
		})
	}
}

// Held reports how many player entries are live.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
