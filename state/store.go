// Package state keeps the per-user chat preferences: which registered model
// answers and whether replies are requested as plain text or JSON. State is
// memory-resident and scoped to the process lifetime.
package state

import (
	"errors"
	"sync"

	"github.com/ildar2244/advent4/format"
	"github.com/ildar2244/advent4/llm"
)

var (
	ErrUnknownModel  = errors.New("state: unknown model")
	ErrInvalidFormat = errors.New("state: invalid response format")
)

// UserState is the snapshot a request pipeline works with. Values, not
// pointers, cross the store boundary, so a caller never observes a torn
// update.
type UserState struct {
	SelectedModel  string
	ResponseFormat format.ResponseFormat
}

// Store maps user ids to their state. Entries are created lazily with the
// registry default and live for the process lifetime. Single-key
// read-modify-write is atomic under the mutex; entries are independent, so
// no cross-user coordination exists.
type Store struct {
	mu       sync.Mutex
	registry *llm.Registry
	users    map[int64]UserState
}

func NewStore(registry *llm.Registry) *Store {
	return &Store{
		registry: registry,
		users:    make(map[int64]UserState),
	}
}

// GetState returns the user's state, creating the default one on first
// contact. It never fails.
func (s *Store) GetState(userID int64) UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID)
}

// SetModel switches the user's model. Unregistered ids are rejected and the
// state is left unchanged.
func (s *Store) SetModel(userID int64, modelID string) error {
	if _, ok := s.registry.Get(modelID); !ok {
		return ErrUnknownModel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(userID)
	st.SelectedModel = modelID
	s.users[userID] = st
	return nil
}

// SetFormat switches the user's response format. Only text and json are
// accepted; anything else is rejected with the state unchanged.
func (s *Store) SetFormat(userID int64, f format.ResponseFormat) error {
	if f != format.FormatText && f != format.FormatJSON {
		return ErrInvalidFormat
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(userID)
	st.ResponseFormat = f
	s.users[userID] = st
	return nil
}

func (s *Store) getOrCreateLocked(userID int64) UserState {
	if st, ok := s.users[userID]; ok {
		return st
	}
	st := UserState{ResponseFormat: format.FormatText}
	if def, ok := s.registry.Default(); ok {
		st.SelectedModel = def.ID
	}
	s.users[userID] = st
	return st
}
