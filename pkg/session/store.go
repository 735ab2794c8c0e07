package session

import (
	"sync"
	"time"

	"github.com/harun/copydesk/internal/observability"
)

// Store maps chat IDs to sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	observability.EnsureRegistered()
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Get returns a copy of the chat's session, if one exists
func (s *Store) Get(chatID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// GetOrCreate returns the chat's session, creating an empty one if needed
func (s *Store) GetOrCreate(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.lockedGetOrCreate(chatID)
}

// Reset replaces the chat's session with an empty one
func (s *Store) Reset(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{ChatID: chatID, CreatedAt: now, UpdatedAt: now}
	s.sessions[chatID] = sess
	observability.SetActiveSessions(len(s.sessions))
	return *sess
}

// Update applies fn to the chat's session atomically. If fn returns an
// error the stored session is left untouched.
func (s *Store) Update(chatID int64, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.lockedGetOrCreate(chatID)
	draft := *current
	if err := fn(&draft); err != nil {
		return *current, err
	}

	draft.ChatID = chatID
	draft.UpdatedAt = s.now()
	*current = draft
	return draft, nil
}

// Len returns the number of sessions held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) lockedGetOrCreate(chatID int64) *Session {
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}
	now := s.now()
	sess := &Session{ChatID: chatID, CreatedAt: now, UpdatedAt: now}
	s.sessions[chatID] = sess
	observability.SetActiveSessions(len(s.sessions))
	return sess
}
