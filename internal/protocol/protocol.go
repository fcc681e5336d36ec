// Package protocol defines the wire envelopes exchanged with the chat server
// and decodes inbound frames into a closed set of event variants.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Recognized envelope types. Anything else is treated as a presence
// roster batch by Decode.
const (
	TypeError          = "ERROR"
	TypeUserLogin      = "USER_LOGIN"
	TypeUserLogout     = "USER_LOGOUT"
	TypeUserActive     = "USER_ACTIVE"
	TypeUserInactive   = "USER_INACTIVE"
	TypeExternalLogin  = "USER_EXTERNAL_LOGIN"
	TypeExternalLogout = "USER_EXTERNAL_LOGOUT"
	TypeMsgSend        = "MSG_SEND"
	TypeMsgFromUser    = "MSG_FROM_USER"
	TypeMsgRead        = "MSG_READ"
	TypeMsgDelete      = "MSG_DELETE"
	TypeMsgEdit        = "MSG_EDIT"
)

// Envelope is the single frame shape used in both directions. ID is the
// client-minted correlation id on requests and their echoes; it is empty
// on server-initiated relays.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Credentials identify the current user for login/logout requests. The
// password never leaves the session.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// UserItem is a roster entry: another user and their presence flag.
type UserItem struct {
	Login  string `json:"login"`
	Online bool   `json:"isLogined"`
}

// Status carries the three monotonic message flags. Field names match the
// wire format.
type Status struct {
	Delivered bool `json:"isDelivered"`
	Read      bool `json:"isReaded"`
	Edited    bool `json:"isEdited"`
}

// Message is a server-assigned two-party message. Exactly one of From/To
// equals the current user's login.
type Message struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Text     string `json:"text"`
	Datetime int64  `json:"datetime"`
	Status   Status `json:"status"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type userPayload struct {
	User UserItem `json:"user"`
}

type messagePayload struct {
	Message Message `json:"message"`
}

type messagesPayload struct {
	Messages []Message `json:"messages"`
}

type usersPayload struct {
	Users []UserItem `json:"users"`
}

// Event is the closed set of inbound protocol events. Adding a new wire
// type means adding a variant here and a case in every consumer switch.
type Event interface{ event() }

// ErrorEvent reports a failed request, correlated by RequestID.
type ErrorEvent struct {
	RequestID string
	Reason    string
}

// LoginConfirmed acknowledges the current user's own login request.
type LoginConfirmed struct {
	RequestID string
	User      UserItem
}

// LogoutConfirmed acknowledges the current user's own logout request.
type LogoutConfirmed struct {
	RequestID string
}

// ExternalLogin reports another user coming online.
type ExternalLogin struct {
	User UserItem
}

// ExternalLogout reports another user going offline.
type ExternalLogout struct {
	User UserItem
}

// MessageSent is the broadcast of any sent message, the current user's
// own included.
type MessageSent struct {
	RequestID string
	Message   Message
}

// HistoryBatch answers a MSG_FROM_USER request. The counterparty login is
// embedded in the echoed request id ("<login>_<suffix>").
type HistoryBatch struct {
	RequestID string
	Messages  []Message
}

// MessageRead reports a message marked read, by either party.
type MessageRead struct {
	RequestID string
	Message   Message
}

// MessageDeleted reports a message removed by its sender.
type MessageDeleted struct {
	RequestID string
	Message   Message
}

// MessageEdited reports a message text change by its sender.
type MessageEdited struct {
	RequestID string
	Message   Message
}

// RosterBatch is the default branch: any unrecognized envelope type is
// read as a presence batch. RawType preserves the original tag so the
// fallthrough stays observable in logs.
type RosterBatch struct {
	RequestID string
	RawType   string
	Users     []UserItem
}

func (ErrorEvent) event()     {}
func (LoginConfirmed) event() {}
func (LogoutConfirmed) event() {}
func (ExternalLogin) event()  {}
func (ExternalLogout) event() {}
func (MessageSent) event()    {}
func (HistoryBatch) event()   {}
func (MessageRead) event()    {}
func (MessageDeleted) event() {}
func (MessageEdited) event()  {}
func (RosterBatch) event()    {}

type rawEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one inbound frame into its event variant. Unknown types
// decode as RosterBatch; a frame that is not an envelope at all is an
// error the caller is expected to drop.
func Decode(data []byte) (Event, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch raw.Type {
	case TypeError:
		var p errorPayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return ErrorEvent{RequestID: raw.ID, Reason: p.Error}, nil
	case TypeUserLogin:
		var p userPayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return LoginConfirmed{RequestID: raw.ID, User: p.User}, nil
	case TypeUserLogout:
		return LogoutConfirmed{RequestID: raw.ID}, nil
	case TypeExternalLogin:
		var p userPayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return ExternalLogin{User: p.User}, nil
	case TypeExternalLogout:
		var p userPayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return ExternalLogout{User: p.User}, nil
	case TypeMsgSend:
		var p messagePayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return MessageSent{RequestID: raw.ID, Message: p.Message}, nil
	case TypeMsgFromUser:
		var p messagesPayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return HistoryBatch{RequestID: raw.ID, Messages: p.Messages}, nil
	case TypeMsgRead:
		var p messagePayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return MessageRead{RequestID: raw.ID, Message: p.Message}, nil
	case TypeMsgDelete:
		var p messagePayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return MessageDeleted{RequestID: raw.ID, Message: p.Message}, nil
	case TypeMsgEdit:
		var p messagePayload
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return MessageEdited{RequestID: raw.ID, Message: p.Message}, nil
	default:
		var p usersPayload
		if len(raw.Payload) > 0 {
			if err := json.Unmarshal(raw.Payload, &p); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w", raw.Type, err)
			}
		}
		return RosterBatch{RequestID: raw.ID, RawType: raw.Type, Users: p.Users}, nil
	}
}

func unmarshalPayload(raw rawEnvelope, v any) error {
	// a JSON null payload unmarshals into anything without error, so it
	// counts as missing along with an absent field
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return fmt.Errorf("decode %s: missing payload", raw.Type)
	}
	if err := json.Unmarshal(raw.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	return nil
}
