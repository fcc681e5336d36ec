// Package tracker mints correlation ids for locally-initiated requests
// and recognizes their echoes, which is how the dispatcher tells the
// current user's own confirmed actions apart from remote ones.
package tracker

import (
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Intent is the semantic kind of an outstanding request.
type Intent string

const (
	IntentLogin         Intent = "login"
	IntentLogout        Intent = "logout"
	IntentSend          Intent = "send"
	IntentRead          Intent = "read"
	IntentDelete        Intent = "delete"
	IntentEdit          Intent = "edit"
	IntentHistory       Intent = "history"
	IntentActiveUsers   Intent = "users-active"
	IntentInactiveUsers Intent = "users-inactive"
)

// Tracker maps outstanding correlation ids to their intent. Ids come from
// a monotonic ULID source, so two ids minted in the same millisecond stay
// distinct and ordered. Ids never expire within a session; a late echo is
// still recognized. Confined to the engine's event loop, not safe for
// concurrent use.
type Tracker struct {
	entropy *ulid.MonotonicEntropy
	pending map[string]Intent
}

func New() *Tracker {
	return &Tracker{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		pending: make(map[string]Intent),
	}
}

// Begin mints a fresh session-unique id and records the request's intent.
func (t *Tracker) Begin(intent Intent) string {
	id := t.mint()
	t.pending[id] = intent
	return id
}

// BeginHistory mints a history-request id with the counterparty login
// embedded as a prefix. The server echoes the id verbatim, and the prefix
// is the only way to recover which counterparty the batch belongs to.
func (t *Tracker) BeginHistory(login string) string {
	id := login + "_" + t.mint()
	t.pending[id] = IntentHistory
	return id
}

// HistoryCounterparty recovers the login embedded in a history-request
// id.
func HistoryCounterparty(id string) (string, bool) {
	login, _, ok := strings.Cut(id, "_")
	if !ok || login == "" {
		return "", false
	}
	return login, true
}

// IsOwn reports whether id belongs to a request this client minted.
func (t *Tracker) IsOwn(id string) bool {
	_, ok := t.pending[id]
	return ok
}

// IntentOf returns the intent recorded for id, if any.
func (t *Tracker) IntentOf(id string) (Intent, bool) {
	intent, ok := t.pending[id]
	return intent, ok
}

// Consume recognizes an echoed id and removes it from the outstanding
// set. Returns the recorded intent and whether the id was ours.
func (t *Tracker) Consume(id string) (Intent, bool) {
	intent, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return intent, ok
}

// Outstanding reports the number of requests still awaiting an echo.
func (t *Tracker) Outstanding() int {
	return len(t.pending)
}

func (t *Tracker) mint() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), t.entropy).String()
}
