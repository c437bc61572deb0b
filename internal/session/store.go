package session

import (
	"sync"
	"time"

	"media-studio/internal/studio"
)

type Session struct {
	ChatID       int64
	Username     string
	Studio       *studio.Studio
	LastActivity time.Time
}

type Options struct {
	// NewStudio builds the studio for a chat seen for the first time.
	NewStudio func() *studio.Studio
	Now       func() time.Time
}

// Store keeps one studio per chat so every chat has its own batch, spec
// and conversation.
type Store struct {
	mu        sync.Mutex
	sessions  map[int64]*Session
	newStudio func() *studio.Studio
	now       func() time.Time
}

func NewStore(opts Options) *Store {
	newStudio := opts.NewStudio
	if newStudio == nil {
		newStudio = func() *studio.Studio { return studio.New(studio.Options{}) }
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions:  make(map[int64]*Session),
		newStudio: newStudio,
		now:       now,
	}
}

func (s *Store) Studio(chatID int64, username string) *studio.Studio {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.LastActivity = s.now()
	return sess.Studio
}

// Reset replaces the chat's studio with a fresh one.
func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[chatID]; ok {
		sess.Studio = s.newStudio()
		sess.LastActivity = s.now()
	}
}

// Prune forgets chats idle for longer than idle and returns how many were dropped.
func (s *Store) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	n := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) getOrCreateLocked(chatID int64, username string) *Session {
	if sess, ok := s.sessions[chatID]; ok {
		if sess.Username == "" && username != "" {
			sess.Username = username
		}
		return sess
	}

	sess := &Session{
		ChatID:       chatID,
		Username:     username,
		Studio:       s.newStudio(),
		LastActivity: s.now(),
	}
	s.sessions[chatID] = sess
	return sess
}
