// Package session owns the trees of connected clients. Every session holds
// one tree; a mutex per session serializes mutations and reads on it, since
// the index core itself is single-writer by design. The process-wide
// mapping from session id to session lives in the Manager.
package session

import (
	"sync"

	"geoindex/index"
)

// Tree is the payload instantiation the boundary layer uses: feature ids.
type Tree = index.RTree[string]

// Session is one client's tree plus the lock that serializes access to it
// and the observers interested in structural updates.
type Session struct {
	ID string

	mu           sync.Mutex
	tree         *Tree
	observers    map[uint64]chan []byte
	nextObserver uint64
}

func newSession(id string, maxEntries int) *Session {
	return &Session{
		ID:        id,
		tree:      index.New[string](maxEntries),
		observers: map[uint64]chan []byte{},
	}
}

// Update runs fn with exclusive access to the tree. Mutations must happen
// inside fn, never on a tree reference kept beyond it.
func (s *Session) Update(fn func(tree *Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tree)
}

// View is Update for read-only work. It takes the same lock: the tree must
// not see a reader while a writer is active.
func (s *Session) View(fn func(tree *Tree) error) error {
	return s.Update(fn)
}

// Subscribe registers an observer and returns its id together with the
// channel structural updates arrive on. The channel is closed when the
// observer unsubscribes or the session is dropped.
func (s *Session) Subscribe() (uint64, <-chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++

	ch := make(chan []byte, 16)
	s.observers[id] = ch
	return id, ch
}

func (s *Session) Unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.observers[id]; ok {
		delete(s.observers, id)
		close(ch)
	}
}

// Broadcast delivers a structural update to all observers. Observers that
// do not keep up are skipped, they will catch up with the next update.
func (s *Session) Broadcast(update []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.observers {
		select {
		case ch <- update:
		default:
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.observers {
		delete(s.observers, id)
		close(ch)
	}
}
