package engine

import "github.com/fathima-sithara/chat-client/internal/protocol"

// Update describes one view mutation the presentation layer must apply.
// The engine never touches the view directly; it returns these from every
// entry point and the view replays them.
type Update interface{ update() }

// Navigate redirects to a page ("chat" or "login").
type Navigate struct {
	Page string
}

// RenderRoster asks for a full re-render of the user list.
type RenderRoster struct{}

// UpdatePresence refreshes one user's online flag in the list and in the
// open dialog header.
type UpdatePresence struct {
	User protocol.UserItem
}

// AppendMessage adds a message to the end of a dialog. Render is set when
// the open dialog belongs to Counterparty and the view should draw and
// auto-scroll now.
type AppendMessage struct {
	Counterparty string
	Message      *protocol.Message
	Own          bool
	Render       bool
}

// RemoveMessage deletes a message from a dialog.
type RemoveMessage struct {
	Counterparty string
	MessageID    string
	Render       bool
}

// EditMessage replaces a message's text in a dialog.
type EditMessage struct {
	Counterparty string
	MessageID    string
	Text         string
	Render       bool
}

// UpdateStatus refreshes the status line of one message.
type UpdateStatus struct {
	Counterparty string
	MessageID    string
	Status       protocol.Status
	Render       bool
}

// MarkDelivered flips the delivered indicator on previously-sent
// messages after their recipient came online.
type MarkDelivered struct {
	Counterparty string
	MessageIDs   []string
	Render       bool
}

// SetUnread updates a roster badge.
type SetUnread struct {
	Login string
	Count int
}

// HideEditForm dismisses the message edit form after a confirmed edit or
// delete of the current user's own message.
type HideEditForm struct{}

// ShowLoginError surfaces an authentication error on the login form.
type ShowLoginError struct {
	Reason string
}

// ShowLogoutError surfaces a failed logout near the presence indicator.
type ShowLogoutError struct {
	Reason string
}

// ShowChatError surfaces a general operation error in the active dialog.
type ShowChatError struct {
	Reason string
}

func (Navigate) update()        {}
func (RenderRoster) update()    {}
func (UpdatePresence) update()  {}
func (AppendMessage) update()   {}
func (RemoveMessage) update()   {}
func (EditMessage) update()     {}
func (UpdateStatus) update()    {}
func (MarkDelivered) update()   {}
func (SetUnread) update()       {}
func (HideEditForm) update()    {}
func (ShowLoginError) update()  {}
func (ShowLogoutError) update() {}
func (ShowChatError) update()   {}
