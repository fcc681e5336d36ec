package main

import (
	"fmt"
	"time"

	"github.com/fathima-sithara/chat-client/internal/engine"
	"github.com/fathima-sithara/chat-client/internal/protocol"
)

// render replays the engine's view updates onto the terminal. This is
// the whole presentation layer: it reads state, never writes it.
func render(eng *engine.Engine, updates []engine.Update) {
	for _, u := range updates {
		switch u := u.(type) {
		case engine.Navigate:
			if u.Page == engine.PageChat {
				fmt.Printf("logged in as %s\n", eng.Roster().CurrentLogin())
			} else {
				fmt.Println("logged out")
			}
		case engine.RenderRoster:
			fmt.Println("users:")
			for _, item := range eng.Roster().All() {
				fmt.Printf("  %s %s\n", presenceMark(item.Online), item.Login)
			}
		case engine.UpdatePresence:
			fmt.Printf("* %s is now %s\n", u.User.Login, presenceWord(u.User.Online))
		case engine.AppendMessage:
			if u.Render {
				printMessage(eng, u.Message)
			}
		case engine.RemoveMessage:
			if u.Render {
				fmt.Printf("* message %s deleted\n", u.MessageID)
			}
		case engine.EditMessage:
			if u.Render {
				fmt.Printf("* message %s edited: %s\n", u.MessageID, u.Text)
			}
		case engine.UpdateStatus:
			if u.Render {
				fmt.Printf("* message %s is now %s\n", u.MessageID, statusWord(u.Status))
			}
		case engine.MarkDelivered:
			if u.Render {
				fmt.Printf("* %d message(s) delivered to %s\n", len(u.MessageIDs), u.Counterparty)
			}
		case engine.SetUnread:
			if u.Count > 0 {
				fmt.Printf("* %s: %d unread\n", u.Login, u.Count)
			}
		case engine.HideEditForm:
			// nothing to dismiss on a terminal
		case engine.ShowLoginError:
			fmt.Printf("! login failed: %s\n", u.Reason)
		case engine.ShowLogoutError:
			fmt.Printf("! logout failed: %s\n", u.Reason)
		case engine.ShowChatError:
			fmt.Printf("! %s\n", u.Reason)
		}
	}
}

func printMessage(eng *engine.Engine, m *protocol.Message) {
	stamp := time.UnixMilli(m.Datetime).Format("15:04")
	marker := "<"
	suffix := ""
	if m.From == eng.Roster().CurrentLogin() {
		marker = ">"
		suffix = " [" + statusWord(m.Status) + "]"
	}
	fmt.Printf("%s %s %s: %s%s (id %s)\n", marker, stamp, m.From, m.Text, suffix, m.ID)
}

func statusWord(s protocol.Status) string {
	word := "pending"
	if s.Delivered {
		word = "delivered"
	}
	if s.Read {
		word = "read"
	}
	if s.Edited {
		word += ", edited"
	}
	return word
}

func presenceMark(online bool) string {
	if online {
		return "+"
	}
	return "-"
}

func presenceWord(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func protocolCredentials(login, password string) protocol.Credentials {
	return protocol.Credentials{Login: login, Password: password}
}
