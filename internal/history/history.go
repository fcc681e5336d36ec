// Package history owns the per-counterparty message sequences of one
// session.
package history

import "github.com/fathima-sithara/chat-client/internal/protocol"

// Store maps a counterparty login to the ordered messages exchanged with
// them. Messages are owned by the store after append; callers mutate
// status only through store methods. Confined to the engine's event loop,
// not safe for concurrent use.
type Store struct {
	histories map[string][]*protocol.Message
	order     []string
}

func New() *Store {
	return &Store{histories: make(map[string][]*protocol.Message)}
}

// Ensure creates an empty history for login if none exists. An empty
// history is a legitimate state distinct from an absent key: it means the
// user is known but nothing has been exchanged yet.
func (s *Store) Ensure(login string) {
	if _, ok := s.histories[login]; !ok {
		s.histories[login] = []*protocol.Message{}
		s.order = append(s.order, login)
	}
}

// Has reports whether a history entry exists for login, empty or not.
func (s *Store) Has(login string) bool {
	_, ok := s.histories[login]
	return ok
}

// Append adds a message to login's history, creating the history when
// needed.
func (s *Store) Append(login string, msg *protocol.Message) {
	s.Ensure(login)
	s.histories[login] = append(s.histories[login], msg)
}

// Replace installs a full history batch for login, discarding whatever
// was there.
func (s *Store) Replace(login string, msgs []protocol.Message) {
	s.Ensure(login)
	seq := make([]*protocol.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		seq = append(seq, &m)
	}
	s.histories[login] = seq
}

// Messages returns login's history in insertion order, or nil when no
// history entry exists.
func (s *Store) Messages(login string) []*protocol.Message {
	return s.histories[login]
}

// FindByID scans every history for the message with the given id. Linear
// in total messages; histories are session-bounded so this stays cheap.
func (s *Store) FindByID(id string) (*protocol.Message, bool) {
	for _, login := range s.order {
		if m, ok := s.findIn(login, id); ok {
			return m, true
		}
	}
	return nil, false
}

// FindIn looks up a message by id within login's history only.
func (s *Store) FindIn(login, id string) (*protocol.Message, bool) {
	return s.findIn(login, id)
}

// Remove deletes the message with the given id from login's history.
// No-op when the message or the history is absent, so a second call with
// the same id leaves the same end state.
func (s *Store) Remove(login, id string) {
	seq, ok := s.histories[login]
	if !ok {
		return
	}
	for i, m := range seq {
		if m.ID == id {
			s.histories[login] = append(seq[:i], seq[i+1:]...)
			return
		}
	}
}

// MarkAllDelivered flips delivered on every message in login's history
// and returns the affected ids. Models the counterparty coming online:
// everything previously sent to them becomes deliverable.
func (s *Store) MarkAllDelivered(login string) []string {
	var ids []string
	for _, m := range s.histories[login] {
		if !m.Status.Delivered {
			m.Status.Delivered = true
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// MarkRead sets read on exactly one message in login's history. The
// server does not require delivered to be set first, so neither does the
// store; read is recorded independently of delivered.
func (s *Store) MarkRead(login, id string) bool {
	if m, ok := s.findIn(login, id); ok {
		m.Status.Read = true
		return true
	}
	return false
}

// EditText replaces the message text and sets edited. Id, endpoints and
// datetime are untouched.
func (s *Store) EditText(login, id, text string) bool {
	if m, ok := s.findIn(login, id); ok {
		m.Text = text
		m.Status.Edited = true
		return true
	}
	return false
}

// UnreadCount reports how many messages from login are still unread.
// Drives the roster badges only.
func (s *Store) UnreadCount(login string) int {
	n := 0
	for _, m := range s.histories[login] {
		if m.From == login && !m.Status.Read {
			n++
		}
	}
	return n
}

// UnreadIDs returns the ids of unread messages from login, in order.
// Feeds the read-receipt fan-out when a dialog is viewed.
func (s *Store) UnreadIDs(login string) []string {
	var ids []string
	for _, m := range s.histories[login] {
		if m.From == login && !m.Status.Read {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// SentIDs returns the ids of messages the current user sent to login.
func (s *Store) SentIDs(login string) []string {
	var ids []string
	for _, m := range s.histories[login] {
		if m.To == login {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Clear drops every history. Called on logout confirmation.
func (s *Store) Clear() {
	s.histories = make(map[string][]*protocol.Message)
	s.order = nil
}

func (s *Store) findIn(login, id string) (*protocol.Message, bool) {
	for _, m := range s.histories[login] {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}
