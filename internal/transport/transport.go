// Package transport maintains the duplex connection to the chat server:
// it serializes outgoing envelopes and delivers inbound frames in
// arrival order.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-client/internal/protocol"
)

// Settings carries the connection timeouts. Zero values fall back to the
// defaults below.
type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	SendBuffer       int
}

func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     25 * time.Second,
		SendBuffer:       64,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = d.HandshakeTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = d.WriteTimeout
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = d.ReadTimeout
	}
	if s.PingInterval == 0 {
		s.PingInterval = d.PingInterval
	}
	if s.SendBuffer == 0 {
		s.SendBuffer = d.SendBuffer
	}
	return s
}

// Client is a websocket connection to the server of record. Outbound
// envelopes are fire and forget; there is no reconnect and no retry.
type Client struct {
	conn     *websocket.Conn
	settings Settings
	log      *zap.SugaredLogger

	send   chan []byte
	frames chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server and starts the read and write pumps.
func Dial(ctx context.Context, url string, settings Settings, log *zap.SugaredLogger) (*Client, error) {
	settings = settings.withDefaults()

	dialer := websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		settings: settings,
		log:      log,
		send:     make(chan []byte, settings.SendBuffer),
		frames:   make(chan []byte, settings.SendBuffer),
		done:     make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

// Send serializes one envelope onto the connection.
func (c *Client) Send(env protocol.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return fmt.Errorf("send %s: connection closed", env.Type)
	}
}

// Frames delivers inbound frames in arrival order. The channel closes
// when the connection drops.
func (c *Client) Frames() <-chan []byte {
	return c.frames
}

// Close shuts the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readPump() {
	defer func() {
		close(c.frames)
		_ = c.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warnw("connection lost", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.log.Warnw("write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
