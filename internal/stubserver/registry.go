// Package stubserver is an in-memory server of record for the chat
// protocol, used for local development and end-to-end tests. It is not
// the product; the real server lives elsewhere.
package stubserver

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fathima-sithara/chat-client/internal/protocol"
)

var (
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrAlreadyOnline    = errors.New("user is already logged in")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrUnknownUser      = errors.New("user is not registered")
	ErrUnknownMessage   = errors.New("message not found")
	ErrNotOwner         = errors.New("not the sender of the message")
	ErrNotRecipient     = errors.New("not the recipient of the message")
)

type account struct {
	login    string
	password string
	online   bool
}

// Registry holds users and messages for the lifetime of the process.
// Connections run concurrently, so everything goes through the mutex.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*account
	order    []string
	messages []*protocol.Message
	byID     map[string]*protocol.Message
}

func NewRegistry() *Registry {
	return &Registry{
		accounts: make(map[string]*account),
		byID:     make(map[string]*protocol.Message),
	}
}

// Login authenticates a user. The first login pins the password; later
// logins must match it. A login that is already online is rejected.
func (r *Registry) Login(login, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[login]
	if !ok {
		r.accounts[login] = &account{login: login, password: password, online: true}
		r.order = append(r.order, login)
		r.markDeliveredTo(login)
		return nil
	}
	if acc.password != password {
		return ErrWrongPassword
	}
	if acc.online {
		return ErrAlreadyOnline
	}
	acc.online = true
	r.markDeliveredTo(login)
	return nil
}

// Logout marks a user offline.
func (r *Registry) Logout(login string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[login]
	if !ok || !acc.online {
		return ErrNotAuthenticated
	}
	acc.online = false
	return nil
}

// Users returns roster entries filtered by presence.
func (r *Registry) Users(online bool) []protocol.UserItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []protocol.UserItem
	for _, login := range r.order {
		if acc := r.accounts[login]; acc.online == online {
			users = append(users, protocol.UserItem{Login: acc.login, Online: acc.online})
		}
	}
	return users
}

// IsOnline reports a user's presence.
func (r *Registry) IsOnline(login string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[login]
	return ok && acc.online
}

// CreateMessage stores a new message with a server-assigned id and
// timestamp. Delivered reflects the recipient's presence at send time.
func (r *Registry) CreateMessage(from, to, text string) (*protocol.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[to]; !ok {
		return nil, ErrUnknownUser
	}
	m := &protocol.Message{
		ID:       uuid.NewString(),
		From:     from,
		To:       to,
		Text:     text,
		Datetime: time.Now().UnixMilli(),
		Status:   protocol.Status{Delivered: r.accounts[to].online},
	}
	r.messages = append(r.messages, m)
	r.byID[m.ID] = m
	return m, nil
}

// History returns every message between two logins, in send order.
func (r *Registry) History(a, b string) []protocol.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := []protocol.Message{}
	for _, m := range r.messages {
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			msgs = append(msgs, *m)
		}
	}
	return msgs
}

// MarkRead sets the read flag. Only the recipient may mark a message
// read. Returns the message's sender for relaying.
func (r *Registry) MarkRead(reader, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return "", ErrUnknownMessage
	}
	if m.To != reader {
		return "", ErrNotRecipient
	}
	m.Status.Read = true
	return m.From, nil
}

// Delete removes a message. Only the sender may delete. Returns the
// recipient for relaying.
func (r *Registry) Delete(requester, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return "", ErrUnknownMessage
	}
	if m.From != requester {
		return "", ErrNotOwner
	}
	delete(r.byID, id)
	for i, stored := range r.messages {
		if stored.ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			break
		}
	}
	return m.To, nil
}

// Edit replaces a message's text. Only the sender may edit. Returns the
// recipient for relaying.
func (r *Registry) Edit(requester, id, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return "", ErrUnknownMessage
	}
	if m.From != requester {
		return "", ErrNotOwner
	}
	m.Text = text
	m.Status.Edited = true
	return m.To, nil
}

// markDeliveredTo flips delivered on everything addressed to login.
// Called under the lock when login comes online.
func (r *Registry) markDeliveredTo(login string) {
	for _, m := range r.messages {
		if m.To == login {
			m.Status.Delivered = true
		}
	}
}
