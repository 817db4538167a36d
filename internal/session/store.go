package session

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Store owns one Log per session for multi-user front ends. Sessions expire
// after ttl without access; when maxSessions is reached the least recently
// used session is evicted.
type Store struct {
	mu          sync.Mutex
	maxSessions int
	ttl         time.Duration
	clock       clockwork.Clock
	sessions    map[string]*list.Element
	lru         *list.List // front = most recently used
}

type storeEntry struct {
	id       string
	log      *Log
	lastSeen time.Time
}

// NewStore creates a Store. A maxSessions or ttl <= 0 disables that limit.
// A nil clock uses real time.
func NewStore(maxSessions int, ttl time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		maxSessions: maxSessions,
		ttl:         ttl,
		clock:       clock,
		sessions:    make(map[string]*list.Element),
		lru:         list.New(),
	}
}

// Create starts a new session with an empty log.
func (s *Store) Create() (string, *Log) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	id := uuid.NewString()
	e := &storeEntry{id: id, log: NewLog(), lastSeen: s.clock.Now()}
	s.sessions[id] = s.lru.PushFront(e)

	if s.maxSessions > 0 {
		for len(s.sessions) > s.maxSessions {
			s.removeLocked(s.lru.Back())
		}
	}
	return id, e.log
}

// Get returns the log for id and refreshes its idle timer.
func (s *Store) Get(id string) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e := el.Value.(*storeEntry)
	now := s.clock.Now()
	if s.expired(e, now) {
		s.removeLocked(el)
		return nil, ErrNotFound
	}
	e.lastSeen = now
	s.lru.MoveToFront(el)
	return e.log, nil
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[id]
	if !ok {
		return false
	}
	s.removeLocked(el)
	return true
}

// Len returns the number of live sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.clock.Now()
	removed := 0
	// Oldest entries sit at the back; stop at the first live one.
	for el := s.lru.Back(); el != nil; {
		e := el.Value.(*storeEntry)
		if !s.expired(e, now) {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		removed++
		el = prev
	}
	return removed
}

func (s *Store) expired(e *storeEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *Store) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*storeEntry)
	delete(s.sessions, e.id)
	s.lru.Remove(el)
}
