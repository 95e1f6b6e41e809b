// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the in-memory chat session store.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/util"
)

// DefaultWelcomeMessage seeds every new session.
const DefaultWelcomeMessage = "Hello! I'm your AI assistant. How can I help you today?"

// DefaultTitleMaxRunes is the title length before the ellipsis is added.
const DefaultTitleMaxRunes = 50

// =============================================================================
// STORE
// =============================================================================

// Store is the in-memory session store. All methods are safe for
// concurrent use; readers always observe a committed snapshot.
type Store struct {
	mu sync.RWMutex

	sessions  []model.Session // newest first
	currentID string

	welcome  string
	titleMax int
	now      func() time.Time
	logger   *zap.Logger
	onChange func()
}

// Option configures a Store.
type Option func(*Store)

// WithWelcomeMessage sets the assistant message seeded into new sessions.
// An empty string seeds the default text.
func WithWelcomeMessage(text string) Option {
	return func(s *Store) {
		if text != "" {
			s.welcome = text
		}
	}
}

// WithTitleMaxRunes sets how many runes of the first user message are
// kept in a derived title.
func WithTitleMaxRunes(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.titleMax = n
		}
	}
}

// WithLogger sets the logger used for store events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOnChange registers a callback invoked after every mutation.
// It is called without the store lock held.
func WithOnChange(fn func()) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		welcome:  DefaultWelcomeMessage,
		titleMax: DefaultTitleMaxRunes,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create inserts a new session at the front of the store, seeded with a
// single welcome message, and makes it current.
func (s *Store) Create() string {
	s.mu.Lock()
	now := s.now()
	welcome := model.NewAssistantMessage(s.welcome)
	welcome.CreatedAt = now

	sess := model.NewSession(welcome)
	sess.CreatedAt = now
	sess.UpdatedAt = now

	s.sessions = append([]model.Session{sess}, s.sessions...)
	s.currentID = sess.ID
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	s.changed()
	return sess.ID
}

// SwitchTo makes id the current session. Unknown ids are ignored.
func (s *Store) SwitchTo(id string) {
	s.mu.Lock()
	if s.indexOf(id) < 0 || s.currentID == id {
		s.mu.Unlock()
		return
	}
	s.currentID = id
	s.mu.Unlock()

	s.changed()
}

// Delete removes session id. When it was current, the first remaining
// session becomes current, or none if the store is now empty.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.sessions = append(s.sessions[:idx:idx], s.sessions[idx+1:]...)
	if s.currentID == id {
		s.currentID = ""
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		}
	}
	s.mu.Unlock()

	s.logger.Debug("session deleted", zap.String("session_id", id))
	s.changed()
}

// Commit replaces the message list of session id, bumps its UpdatedAt and
// derives the title if it has not been derived yet. It reports whether
// the session exists.
func (s *Store) Commit(id string, messages []model.Message) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	sess := &s.sessions[idx]
	sess.Messages = model.CloneMessages(messages)
	sess.UpdatedAt = s.now()
	if !sess.Titled {
		if title, ok := DeriveTitle(sess.Messages, s.titleMax); ok {
			sess.Title = title
			sess.Titled = true
		}
	}
	s.mu.Unlock()

	s.changed()
	return true
}

// =============================================================================
// QUERIES
// =============================================================================

// Current returns a copy of the current session.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return model.Session{}, false
	}
	return s.sessions[idx].Clone(), true
}

// CurrentID returns the current session id, or "" when there is none.
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// Get returns a copy of session id.
func (s *Store) Get(id string) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Session{}, false
	}
	return s.sessions[idx].Clone(), true
}

// MustGet is like Get but panics if id is unknown.
func (s *Store) MustGet(id string) model.Session {
	sess, ok := s.Get(id)
	if !ok {
		panic("session: unknown id " + id)
	}
	return sess
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// DeriveTitle computes a title from the first user message once more
// than one message exists. ok is false while the title should stay
// model.DefaultTitle.
func DeriveTitle(messages []model.Message, maxRunes int) (title string, ok bool) {
	if len(messages) <= 1 {
		return "", false
	}
	first, found := model.FirstOfRole(messages, model.RoleUser)
	if !found {
		return "", false
	}
	return util.Ellipsize(first.Content, maxRunes), true
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
