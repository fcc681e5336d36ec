// Package roster tracks the authenticated user and the presence roster of
// every other known user.
package roster

import "github.com/fathima-sithara/chat-client/internal/protocol"

// Store holds identity and presence state for one session. It is confined
// to the engine's event loop and is not safe for concurrent use.
type Store struct {
	current protocol.Credentials
	users   []*protocol.UserItem
	byLogin map[string]*protocol.UserItem
}

func New() *Store {
	return &Store{byLogin: make(map[string]*protocol.UserItem)}
}

// SetCurrentUser records the authenticating user. Credentials live only
// for the session.
func (s *Store) SetCurrentUser(user protocol.Credentials) {
	s.current = user
}

// CurrentUser returns the authenticated user's credentials.
func (s *Store) CurrentUser() protocol.Credentials {
	return s.current
}

// CurrentLogin returns the authenticated user's login.
func (s *Store) CurrentLogin() string {
	return s.current.Login
}

// Upsert adds a previously unknown user, or updates only the presence
// flag of a known one. Identity is immutable once created.
func (s *Store) Upsert(user protocol.UserItem) {
	if existing, ok := s.byLogin[user.Login]; ok {
		existing.Online = user.Online
		return
	}
	s.add(user)
}

// AddBatch appends a presence batch, skipping the current user's own
// login, which the server includes in active-user snapshots.
func (s *Store) AddBatch(users []protocol.UserItem) {
	for _, u := range users {
		if u.Login == s.current.Login {
			continue
		}
		if _, ok := s.byLogin[u.Login]; ok {
			s.byLogin[u.Login].Online = u.Online
			continue
		}
		s.add(u)
	}
}

// FindByLogin looks up a roster entry by login.
func (s *Store) FindByLogin(login string) (*protocol.UserItem, bool) {
	u, ok := s.byLogin[login]
	return u, ok
}

// All returns the roster in insertion order.
func (s *Store) All() []*protocol.UserItem {
	return s.users
}

// Len reports the number of known other users.
func (s *Store) Len() int {
	return len(s.users)
}

// Clear tears the session down: roster emptied, current user zeroed.
// Called on logout confirmation so no state leaks into the next session.
func (s *Store) Clear() {
	s.current = protocol.Credentials{}
	s.users = nil
	s.byLogin = make(map[string]*protocol.UserItem)
}

func (s *Store) add(user protocol.UserItem) {
	u := user
	s.users = append(s.users, &u)
	s.byLogin[u.Login] = &u
}
