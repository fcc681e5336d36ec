package stubserver

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fathima-sithara/chat-client/internal/protocol"
)

// Options tune the server; zero values get defaults.
type Options struct {
	RateLimit float64 // frames per second per connection
	RateBurst int
}

// Server upgrades websocket connections on "/" and speaks the chat
// protocol against an in-memory registry.
type Server struct {
	app *fiber.App
	reg *Registry
	log *zap.SugaredLogger
	opt Options

	mu    sync.RWMutex
	conns map[string]*client
}

func New(log *zap.SugaredLogger, opt Options) *Server {
	if opt.RateLimit == 0 {
		opt.RateLimit = 50
	}
	if opt.RateBurst == 0 {
		opt.RateBurst = 100
	}
	s := &Server{
		app:   fiber.New(fiber.Config{DisableStartupMessage: true}),
		reg:   NewRegistry(),
		log:   log,
		opt:   opt,
		conns: make(map[string]*client),
	}

	s.app.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/", websocket.New(s.handleConn))
	return s
}

// Registry exposes the backing state, mainly for tests.
func (s *Server) Registry() *Registry { return s.reg }

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type client struct {
	conn  *websocket.Conn
	send  chan protocol.Envelope
	login string
}

func (c *client) enqueue(env protocol.Envelope) {
	select {
	case c.send <- env:
	default:
		// slow consumer, drop
	}
}

func (c *client) writePump() {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func (s *Server) handleConn(conn *websocket.Conn) {
	cl := &client{conn: conn, send: make(chan protocol.Envelope, 64)}
	go cl.writePump()

	limiter := rate.NewLimiter(rate.Limit(s.opt.RateLimit), s.opt.RateBurst)

	defer func() {
		s.dropClient(cl)
		close(cl.send)
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			s.log.Warnw("rate limit exceeded, dropping frame", "login", cl.login)
			continue
		}
		s.handleFrame(cl, data)
	}
}

func (s *Server) dropClient(cl *client) {
	if cl.login == "" {
		return
	}
	_ = s.reg.Logout(cl.login)
	s.mu.Lock()
	if s.conns[cl.login] == cl {
		delete(s.conns, cl.login)
	}
	s.mu.Unlock()
	s.broadcast(cl.login, protocol.Envelope{
		Type:    protocol.TypeExternalLogout,
		Payload: userResp{User: protocol.UserItem{Login: cl.login}},
	})
}

type request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type userResp struct {
	User protocol.UserItem `json:"user"`
}

type usersResp struct {
	Users []protocol.UserItem `json:"users"`
}

type messageResp struct {
	Message protocol.Message `json:"message"`
}

type messagesResp struct {
	Messages []protocol.Message `json:"messages"`
}

type errorResp struct {
	Error string `json:"error"`
}

func (s *Server) handleFrame(cl *client, data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Debugw("unparseable frame", "err", err)
		return
	}

	switch req.Type {
	case protocol.TypeUserLogin:
		s.handleLogin(cl, req)
	case protocol.TypeUserLogout:
		s.handleLogout(cl, req)
	case protocol.TypeUserActive:
		if cl.login == "" {
			cl.enqueue(errEnvelope(req.ID, ErrNotAuthenticated.Error()))
			return
		}
		cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeUserActive,
			Payload: usersResp{Users: orEmpty(s.reg.Users(true))}})
	case protocol.TypeUserInactive:
		if cl.login == "" {
			cl.enqueue(errEnvelope(req.ID, ErrNotAuthenticated.Error()))
			return
		}
		cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeUserInactive,
			Payload: usersResp{Users: orEmpty(s.reg.Users(false))}})
	case protocol.TypeMsgSend:
		s.handleSend(cl, req)
	case protocol.TypeMsgFromUser:
		s.handleHistory(cl, req)
	case protocol.TypeMsgRead:
		s.handleRead(cl, req)
	case protocol.TypeMsgDelete:
		s.handleDelete(cl, req)
	case protocol.TypeMsgEdit:
		s.handleEdit(cl, req)
	default:
		cl.enqueue(errEnvelope(req.ID, "unknown request type"))
	}
}

func (s *Server) handleLogin(cl *client, req request) {
	var p struct {
		User protocol.Credentials `json:"user"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.User.Login == "" {
		cl.enqueue(errEnvelope(req.ID, "invalid login payload"))
		return
	}
	if err := s.reg.Login(p.User.Login, p.User.Password); err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	cl.login = p.User.Login

	s.mu.Lock()
	s.conns[cl.login] = cl
	s.mu.Unlock()

	item := protocol.UserItem{Login: cl.login, Online: true}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeUserLogin, Payload: userResp{User: item}})
	s.broadcast(cl.login, protocol.Envelope{Type: protocol.TypeExternalLogin, Payload: userResp{User: item}})
}

func (s *Server) handleLogout(cl *client, req request) {
	if err := s.reg.Logout(cl.login); err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	login := cl.login
	cl.login = ""

	s.mu.Lock()
	delete(s.conns, login)
	s.mu.Unlock()

	item := protocol.UserItem{Login: login}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeUserLogout, Payload: userResp{User: item}})
	s.broadcast(login, protocol.Envelope{Type: protocol.TypeExternalLogout, Payload: userResp{User: item}})
}

func (s *Server) handleSend(cl *client, req request) {
	var p struct {
		Message struct {
			To   string `json:"to"`
			Text string `json:"text"`
		} `json:"message"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil || cl.login == "" {
		cl.enqueue(errEnvelope(req.ID, "invalid send payload"))
		return
	}
	m, err := s.reg.CreateMessage(cl.login, p.Message.To, p.Message.Text)
	if err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeMsgSend, Payload: messageResp{Message: *m}})
	s.relay(m.To, protocol.Envelope{Type: protocol.TypeMsgSend, Payload: messageResp{Message: *m}})
}

func (s *Server) handleHistory(cl *client, req request) {
	var p struct {
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil || cl.login == "" {
		cl.enqueue(errEnvelope(req.ID, "invalid history payload"))
		return
	}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeMsgFromUser,
		Payload: messagesResp{Messages: s.reg.History(cl.login, p.User.Login)}})
}

func (s *Server) handleRead(cl *client, req request) {
	id, ok := s.messageID(cl, req)
	if !ok {
		return
	}
	sender, err := s.reg.MarkRead(cl.login, id)
	if err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	payload := messageResp{Message: protocol.Message{ID: id, Status: protocol.Status{Read: true}}}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeMsgRead, Payload: payload})
	s.relay(sender, protocol.Envelope{Type: protocol.TypeMsgRead, Payload: payload})
}

func (s *Server) handleDelete(cl *client, req request) {
	id, ok := s.messageID(cl, req)
	if !ok {
		return
	}
	recipient, err := s.reg.Delete(cl.login, id)
	if err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	payload := messageResp{Message: protocol.Message{ID: id}}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeMsgDelete, Payload: payload})
	s.relay(recipient, protocol.Envelope{Type: protocol.TypeMsgDelete, Payload: payload})
}

func (s *Server) handleEdit(cl *client, req request) {
	var p struct {
		Message struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"message"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil || cl.login == "" {
		cl.enqueue(errEnvelope(req.ID, "invalid edit payload"))
		return
	}
	recipient, err := s.reg.Edit(cl.login, p.Message.ID, p.Message.Text)
	if err != nil {
		cl.enqueue(errEnvelope(req.ID, err.Error()))
		return
	}
	payload := messageResp{Message: protocol.Message{
		ID:     p.Message.ID,
		Text:   p.Message.Text,
		Status: protocol.Status{Edited: true},
	}}
	cl.enqueue(protocol.Envelope{ID: req.ID, Type: protocol.TypeMsgEdit, Payload: payload})
	s.relay(recipient, protocol.Envelope{Type: protocol.TypeMsgEdit, Payload: payload})
}

func (s *Server) messageID(cl *client, req request) (string, bool) {
	var p struct {
		Message struct {
			ID string `json:"id"`
		} `json:"message"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil || cl.login == "" || p.Message.ID == "" {
		cl.enqueue(errEnvelope(req.ID, "invalid message payload"))
		return "", false
	}
	return p.Message.ID, true
}

// broadcast sends to every authenticated connection except the subject.
func (s *Server) broadcast(exceptLogin string, env protocol.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for login, cl := range s.conns {
		if login == exceptLogin {
			continue
		}
		cl.enqueue(env)
	}
}

// relay sends to one login if connected.
func (s *Server) relay(login string, env protocol.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cl, ok := s.conns[login]; ok {
		cl.enqueue(env)
	}
}

func errEnvelope(id, reason string) protocol.Envelope {
	return protocol.Envelope{ID: id, Type: protocol.TypeError, Payload: errorResp{Error: reason}}
}

func orEmpty(users []protocol.UserItem) []protocol.UserItem {
	if users == nil {
		return []protocol.UserItem{}
	}
	return users
}
