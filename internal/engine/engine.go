// Package engine is the state reconciliation core: it interprets inbound
// protocol events, decides whether an action originated locally or
// remotely, mutates message and roster state, and returns the view
// updates that follow.
package engine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-client/internal/history"
	"github.com/fathima-sithara/chat-client/internal/protocol"
	"github.com/fathima-sithara/chat-client/internal/roster"
	"github.com/fathima-sithara/chat-client/internal/tracker"
)

const (
	PageLogin = "login"
	PageChat  = "chat"
)

// rosterBatchTarget is how many presence batches the server sends after
// login (one for active users, one for inactive) before the roster can
// be considered complete.
const rosterBatchTarget = 2

var ErrNoOpenDialog = errors.New("no dialog is open")

// Sender delivers an outbound envelope to the transport. Fire and
// forget; there are no retries anywhere in the engine.
type Sender interface {
	Send(protocol.Envelope) error
}

// SessionFlag persists the only state that survives a restart: whether
// the user was logged in.
type SessionFlag interface {
	Set(loggedIn bool) error
}

// Engine owns all mutable session state. It is built once per session
// and torn down on logout confirmation; every mutation happens on the
// single goroutine that calls its methods.
type Engine struct {
	log     *zap.SugaredLogger
	sender  Sender
	session SessionFlag

	roster  *roster.Store
	history *history.Store
	tracker *tracker.Tracker

	// rosterBatches implements the two-phase roster gate. The policy is
	// isolated here: dispatch only asks rosterComplete().
	rosterBatches int

	openDialog  string
	loginReqID  string
	logoutReqID string
}

// New builds a session engine. session may be nil when nothing should be
// persisted.
func New(sender Sender, session SessionFlag, log *zap.SugaredLogger) *Engine {
	return &Engine{
		log:     log,
		sender:  sender,
		session: session,
		roster:  roster.New(),
		history: history.New(),
		tracker: tracker.New(),
	}
}

// Roster exposes the identity and presence store, read-only by
// convention: the view reads, only the engine writes.
func (e *Engine) Roster() *roster.Store { return e.roster }

// History exposes the message store under the same read-only convention.
func (e *Engine) History() *history.Store { return e.history }

// OpenDialogLogin reports which counterparty's dialog is open, or "".
func (e *Engine) OpenDialogLogin() string { return e.openDialog }

// Login records the authenticating user and emits the login request plus
// the two roster-refresh requests (active and inactive users).
func (e *Engine) Login(user protocol.Credentials) error {
	e.roster.SetCurrentUser(user)

	e.loginReqID = e.tracker.Begin(tracker.IntentLogin)
	if err := e.sender.Send(protocol.LoginRequest(e.loginReqID, user)); err != nil {
		return err
	}
	if err := e.sender.Send(protocol.ActiveUsersRequest(e.tracker.Begin(tracker.IntentActiveUsers))); err != nil {
		return err
	}
	return e.sender.Send(protocol.InactiveUsersRequest(e.tracker.Begin(tracker.IntentInactiveUsers)))
}

// Logout emits the logout request. State is cleared only when the server
// confirms, so a failed logout leaves the session intact.
func (e *Engine) Logout() error {
	e.logoutReqID = e.tracker.Begin(tracker.IntentLogout)
	return e.sender.Send(protocol.LogoutRequest(e.logoutReqID, e.roster.CurrentUser()))
}

// OpenDialog switches the active dialog to login and returns its history
// for rendering. An empty slice means the user is known but nothing has
// been exchanged yet, which the view shows as the initial dialog prompt.
func (e *Engine) OpenDialog(login string) []*protocol.Message {
	e.openDialog = login
	return e.history.Messages(login)
}

// CloseDialog leaves the active dialog.
func (e *Engine) CloseDialog() {
	e.openDialog = ""
}

// Send emits a message to the open dialog's counterparty. The message is
// appended to history only when the server echoes it back.
func (e *Engine) Send(text string) error {
	if e.openDialog == "" {
		return ErrNoOpenDialog
	}
	id := e.tracker.Begin(tracker.IntentSend)
	return e.sender.Send(protocol.SendRequest(id, e.openDialog, text))
}

// MarkDialogRead emits a read receipt for every unread message from the
// open dialog's counterparty. Called by the view when the dialog has
// actually been seen.
func (e *Engine) MarkDialogRead() error {
	if e.openDialog == "" {
		return nil
	}
	for _, msgID := range e.history.UnreadIDs(e.openDialog) {
		id := e.tracker.Begin(tracker.IntentRead)
		if err := e.sender.Send(protocol.ReadRequest(id, msgID)); err != nil {
			return err
		}
	}
	return nil
}

// Delete requests removal of one of the current user's own messages.
func (e *Engine) Delete(messageID string) error {
	id := e.tracker.Begin(tracker.IntentDelete)
	return e.sender.Send(protocol.DeleteRequest(id, messageID))
}

// Edit requests a text change on one of the current user's own messages.
func (e *Engine) Edit(messageID, text string) error {
	id := e.tracker.Begin(tracker.IntentEdit)
	return e.sender.Send(protocol.EditRequest(id, messageID, text))
}

// HandleInbound reconciles one inbound frame against session state and
// returns the resulting view updates. Frames that are not envelopes at
// all are dropped with a log line and no error surface.
func (e *Engine) HandleInbound(data []byte) []Update {
	event, err := protocol.Decode(data)
	if err != nil {
		e.log.Debugw("dropping undecodable frame", "err", err)
		return nil
	}

	switch ev := event.(type) {
	case protocol.ErrorEvent:
		return e.handleError(ev)
	case protocol.LoginConfirmed:
		return e.handleLoginConfirmed(ev)
	case protocol.LogoutConfirmed:
		return e.handleLogoutConfirmed(ev)
	case protocol.ExternalLogin:
		return e.handleExternalLogin(ev)
	case protocol.ExternalLogout:
		return e.handleExternalLogout(ev)
	case protocol.MessageSent:
		return e.handleMessageSent(ev)
	case protocol.HistoryBatch:
		return e.handleHistoryBatch(ev)
	case protocol.MessageRead:
		return e.handleMessageRead(ev)
	case protocol.MessageDeleted:
		return e.handleMessageDeleted(ev)
	case protocol.MessageEdited:
		return e.handleMessageEdited(ev)
	case protocol.RosterBatch:
		return e.handleRosterBatch(ev)
	default:
		return nil
	}
}

// handleError routes a failed request to the surface it belongs to by
// comparing the echoed id against the pinned login/logout request ids.
func (e *Engine) handleError(ev protocol.ErrorEvent) []Update {
	e.tracker.Consume(ev.RequestID)
	// an anonymous error (null id) must not match an unset pinned id
	if ev.RequestID == "" {
		return []Update{ShowChatError{Reason: ev.Reason}}
	}
	switch ev.RequestID {
	case e.loginReqID:
		return []Update{ShowLoginError{Reason: ev.Reason}}
	case e.logoutReqID:
		return []Update{ShowLogoutError{Reason: ev.Reason}}
	default:
		return []Update{ShowChatError{Reason: ev.Reason}}
	}
}

func (e *Engine) handleLoginConfirmed(ev protocol.LoginConfirmed) []Update {
	e.tracker.Consume(ev.RequestID)
	e.setSessionFlag(true)
	return []Update{Navigate{Page: PageChat}}
}

// handleLogoutConfirmed tears the session down so nothing leaks into the
// next one: roster, histories and the roster gate all reset.
func (e *Engine) handleLogoutConfirmed(ev protocol.LogoutConfirmed) []Update {
	e.tracker.Consume(ev.RequestID)
	e.setSessionFlag(false)
	e.roster.Clear()
	e.history.Clear()
	e.rosterBatches = 0
	e.openDialog = ""
	return []Update{Navigate{Page: PageLogin}}
}

// handleExternalLogin upserts presence and flips delivered on everything
// previously sent to that user in this session.
func (e *Engine) handleExternalLogin(ev protocol.ExternalLogin) []Update {
	_, known := e.roster.FindByLogin(ev.User.Login)
	e.roster.Upsert(ev.User)

	var updates []Update
	if known {
		updates = append(updates, UpdatePresence{User: ev.User})
	} else {
		updates = append(updates, RenderRoster{})
	}

	if ids := e.history.MarkAllDelivered(ev.User.Login); len(ids) > 0 {
		updates = append(updates, MarkDelivered{
			Counterparty: ev.User.Login,
			MessageIDs:   ids,
			Render:       e.openDialog == ev.User.Login,
		})
	}
	return updates
}

func (e *Engine) handleExternalLogout(ev protocol.ExternalLogout) []Update {
	_, known := e.roster.FindByLogin(ev.User.Login)
	e.roster.Upsert(ev.User)
	if !known {
		return []Update{RenderRoster{}}
	}
	return []Update{UpdatePresence{User: ev.User}}
}

// handleMessageSent processes the broadcast of any sent message, the
// current user's own included. Origin here is decided by the from field,
// not the correlation id: the history lands under whichever endpoint is
// not the current user.
func (e *Engine) handleMessageSent(ev protocol.MessageSent) []Update {
	e.tracker.Consume(ev.RequestID)
	m := ev.Message

	if m.From == e.roster.CurrentLogin() {
		e.history.Append(m.To, &m)
		return []Update{AppendMessage{Counterparty: m.To, Message: &m, Own: true, Render: true}}
	}

	e.history.Append(m.From, &m)
	if m.From == e.openDialog {
		return []Update{AppendMessage{Counterparty: m.From, Message: &m, Render: true}}
	}
	return []Update{
		AppendMessage{Counterparty: m.From, Message: &m},
		SetUnread{Login: m.From, Count: e.history.UnreadCount(m.From)},
	}
}

// handleHistoryBatch installs a counterparty's history. The batch does
// not say which counterparty it belongs to; the login is recovered from
// the prefix of the echoed request id.
func (e *Engine) handleHistoryBatch(ev protocol.HistoryBatch) []Update {
	e.tracker.Consume(ev.RequestID)
	login, ok := tracker.HistoryCounterparty(ev.RequestID)
	if !ok {
		e.log.Debugw("history batch with unparseable id", "id", ev.RequestID)
		return nil
	}
	e.history.Replace(login, ev.Messages)
	if _, known := e.roster.FindByLogin(login); known {
		return []Update{SetUnread{Login: login, Count: e.history.UnreadCount(login)}}
	}
	return nil
}

// handleMessageRead branches on origin. Self-originated: the current
// user read a counterparty message in the open dialog. Other-originated:
// the counterparty read a message the current user sent.
func (e *Engine) handleMessageRead(ev protocol.MessageRead) []Update {
	_, own := e.tracker.Consume(ev.RequestID)

	m, ok := e.history.FindByID(ev.Message.ID)
	if !ok {
		// A read for a message we no longer hold (or never held) is a
		// no-op; out-of-order races resolve themselves this way.
		return nil
	}
	counterparty := e.counterpartyOf(m)

	if own {
		e.history.MarkRead(counterparty, m.ID)
		return []Update{
			UpdateStatus{Counterparty: counterparty, MessageID: m.ID, Status: m.Status, Render: counterparty == e.openDialog},
			SetUnread{Login: counterparty, Count: e.history.UnreadCount(counterparty)},
		}
	}

	m.Status.Read = true
	return []Update{UpdateStatus{
		Counterparty: counterparty,
		MessageID:    m.ID,
		Status:       m.Status,
		Render:       counterparty == e.openDialog,
	}}
}

// handleMessageDeleted branches on origin. Self-originated: the current
// user's own delete confirmed, so the copy in the open dialog goes and
// the edit form is dismissed. Other-originated: the sender deleted their
// message; if the current user had not read it yet the unread badge
// drops by one.
func (e *Engine) handleMessageDeleted(ev protocol.MessageDeleted) []Update {
	_, own := e.tracker.Consume(ev.RequestID)

	m, ok := e.history.FindByID(ev.Message.ID)
	if !ok {
		return nil
	}
	counterparty := e.counterpartyOf(m)

	if own {
		e.history.Remove(counterparty, m.ID)
		return []Update{
			RemoveMessage{Counterparty: counterparty, MessageID: m.ID, Render: counterparty == e.openDialog},
			HideEditForm{},
		}
	}

	wasUnread := !m.Status.Read
	e.history.Remove(counterparty, m.ID)

	updates := []Update{RemoveMessage{
		Counterparty: counterparty,
		MessageID:    ev.Message.ID,
		Render:       counterparty == e.openDialog,
	}}
	if wasUnread {
		updates = append(updates, SetUnread{Login: counterparty, Count: e.history.UnreadCount(counterparty)})
	}
	return updates
}

// handleMessageEdited branches on origin the same way as delete.
func (e *Engine) handleMessageEdited(ev protocol.MessageEdited) []Update {
	_, own := e.tracker.Consume(ev.RequestID)

	m, ok := e.history.FindByID(ev.Message.ID)
	if !ok {
		return nil
	}
	counterparty := e.counterpartyOf(m)
	e.history.EditText(counterparty, m.ID, ev.Message.Text)

	if own {
		return []Update{
			EditMessage{Counterparty: counterparty, MessageID: m.ID, Text: ev.Message.Text, Render: counterparty == e.openDialog},
			HideEditForm{},
		}
	}
	return []Update{EditMessage{
		Counterparty: counterparty,
		MessageID:    ev.Message.ID,
		Text:         ev.Message.Text,
		Render:       counterparty == e.openDialog,
	}}
}

// handleRosterBatch accumulates the two presence batches the server
// sends after login. Only when both have arrived is the roster complete;
// then histories are requested for every known user.
func (e *Engine) handleRosterBatch(ev protocol.RosterBatch) []Update {
	if ev.RawType != protocol.TypeUserActive && ev.RawType != protocol.TypeUserInactive {
		// Unrecognized types deliberately fall through here and are
		// otherwise dropped without an error surface.
		e.log.Debugw("unrecognized envelope treated as roster batch", "type", ev.RawType)
	}

	e.tracker.Consume(ev.RequestID)
	e.rosterBatches++
	e.roster.AddBatch(ev.Users)

	if e.rosterBatches != rosterBatchTarget {
		return nil
	}

	for _, u := range e.roster.All() {
		id := e.tracker.BeginHistory(u.Login)
		if err := e.sender.Send(protocol.HistoryRequest(id, u.Login)); err != nil {
			e.log.Warnw("history request failed", "login", u.Login, "err", err)
		}
	}
	return []Update{RenderRoster{}}
}

// counterpartyOf returns whichever endpoint of m is not the current
// user. Messages are strictly two-party, so exactly one of from/to is
// the current login.
func (e *Engine) counterpartyOf(m *protocol.Message) string {
	if m.From == e.roster.CurrentLogin() {
		return m.To
	}
	return m.From
}

func (e *Engine) setSessionFlag(loggedIn bool) {
	if e.session == nil {
		return
	}
	if err := e.session.Set(loggedIn); err != nil {
		e.log.Warnw("session flag not persisted", "err", err)
	}
}
