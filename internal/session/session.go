package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"roomchat/internal/models"
	"roomchat/internal/presence"
	"roomchat/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultScheme         = "wss"
	DefaultPathPrefix     = "wss/chat"
	DefaultReconnectDelay = 2 * time.Second
)

var (
	ErrNotConnected = errors.New("session is not connected")
	ErrInvalidState = errors.New("operation not allowed in current connection state")
)

// RosterPolicy decides what happens to the roster across reconnects.
type RosterPolicy int

const (
	// RosterClearOnDisconnect empties the roster when the transport closes.
	// user_list snapshots are merged into the roster.
	RosterClearOnDisconnect RosterPolicy = iota
	// RosterReplaceOnSnapshot keeps the roster across a disconnect until
	// the next user_list, which replaces it entirely.
	RosterReplaceOnSnapshot
	// RosterRetain never clears the roster; user_list snapshots are merged.
	RosterRetain
)

func (p RosterPolicy) String() string {
	switch p {
	case RosterClearOnDisconnect:
		return "clear"
	case RosterReplaceOnSnapshot:
		return "replace"
	case RosterRetain:
		return "retain"
	default:
		return "unknown"
	}
}

func ParseRosterPolicy(s string) (RosterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clear":
		return RosterClearOnDisconnect, nil
	case "replace":
		return RosterReplaceOnSnapshot, nil
	case "retain":
		return RosterRetain, nil
	default:
		return 0, fmt.Errorf("unknown roster policy %q (want clear, replace or retain)", s)
	}
}

type Config struct {
	Scheme     string
	Host       string
	PathPrefix string
	Room       string

	// Header is sent with every dial, e.g. Authorization.
	Header http.Header

	ReconnectDelay time.Duration
	RosterPolicy   RosterPolicy

	Dialer Dialer
	Logger *slog.Logger
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Room == "" {
		return errors.New("room is required")
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.PathPrefix == "" {
		c.PathPrefix = DefaultPathPrefix
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Dialer == nil {
		c.Dialer = NewWebsocketDialer()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// URL returns <scheme>://<host>/<path-prefix>/<room>/.
func (c *Config) URL() string {
	path := "/"
	if prefix := strings.Trim(c.PathPrefix, "/"); prefix != "" {
		path += prefix + "/"
	}
	return c.Scheme + "://" + c.Host + path + url.PathEscape(c.Room) + "/"
}

type stopper interface {
	Stop() bool
}

// Session is a room chat connection that keeps itself connected and tracks
// who is in the room.
type Session struct {
	cfg    Config
	id     string
	log    *slog.Logger
	roster *presence.Roster
	events *dispatcher

	afterFunc func(time.Duration, func()) stopper

	mu          sync.Mutex
	state       models.ConnectionState
	conn        Transport
	cancelDial  context.CancelFunc
	attempt     uint64
	reconnect   stopper
	reconnectID uint64

	writeMu sync.Mutex
}

func New(cfg Config, handler Handler) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Session{
		cfg:    cfg,
		id:     id,
		log:    cfg.Logger.With("room", cfg.Room, "session", id),
		roster: presence.NewRoster(),
		events: newDispatcher(handler),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		state: models.StateDisconnected,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) URL() string {
	return s.cfg.URL()
}

func (s *Session) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Roster returns the sorted list of users believed to be in the room.
func (s *Session) Roster() []string {
	return s.roster.Users()
}

// Connect starts connecting. It does not wait for the connection to open;
// progress is reported through OnConnectionStateChanged.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateDisconnected {
		return fmt.Errorf("connect while %s: %w", s.state, ErrInvalidState)
	}
	s.stopReconnectLocked()
	s.startAttemptLocked()
	return nil
}

// Disconnect closes the connection and suppresses reconnection.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case models.StateDisconnected:
		s.stopReconnectLocked()
	case models.StateConnecting:
		s.setStateLocked(models.StateClosing)
		if s.cancelDial != nil {
			s.cancelDial()
		}
	case models.StateOpen:
		s.setStateLocked(models.StateClosing)
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				s.log.Debug("closing transport", "error", err)
			}
		}
	case models.StateClosing:
	}
	return nil
}

// Send hands text to the transport. Empty text is ignored. There is no
// delivery acknowledgement.
func (s *Session) Send(text string) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	conn, state := s.conn, s.state
	s.mu.Unlock()

	if state != models.StateOpen || conn == nil {
		s.log.Debug("dropping message while not connected", "state", state.String())
		return ErrNotConnected
	}

	data, err := protocol.EncodeOutbound(text)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	s.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()

	if err != nil {
		s.log.Warn("transport write failed, closing", "error", err)
		_ = conn.Close()
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *Session) setStateLocked(state models.ConnectionState) {
	if s.state == state {
		return
	}
	s.state = state
	s.log.Debug("connection state changed", "state", state.String())
	s.events.emit(func(h Handler) { h.OnConnectionStateChanged(state) })
}

func (s *Session) startAttemptLocked() {
	s.attempt++
	attempt := s.attempt

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDial = cancel
	s.setStateLocked(models.StateConnecting)

	go s.run(ctx, attempt)
}

// run drives one connection attempt from dial to close. Everything that
// happens on a transport is handled on this goroutine.
func (s *Session) run(ctx context.Context, attempt uint64) {
	target := s.cfg.URL()
	s.log.Info("connecting", "url", target, "attempt", attempt)

	conn, err := s.cfg.Dialer.Dial(ctx, target, s.cfg.Header)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("connect failed", "error", err)
		}
		s.handleClose(attempt)
		return
	}

	if !s.handleOpen(attempt, conn) {
		_ = conn.Close()
		s.handleClose(attempt)
		return
	}

	s.readLoop(conn)
	_ = conn.Close()
	s.handleClose(attempt)
}

func (s *Session) handleOpen(attempt uint64, conn Transport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt != s.attempt || s.state != models.StateConnecting {
		return false
	}
	s.conn = conn
	s.setStateLocked(models.StateOpen)
	s.log.Info("connected")
	return true
}

func (s *Session) readLoop(conn Transport) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case s.State() == models.StateClosing:
				s.log.Debug("transport closed locally")
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				s.log.Info("transport closed by server", "error", err)
			default:
				s.log.Warn("transport error", "error", err)
			}
			return
		}
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		s.log.Error("dropping frame", "error", err)
		return
	}

	switch f := frame.(type) {
	case protocol.ChatMessage:
		msg := models.ChatMessage{User: f.User, Message: f.Message, Time: f.Time}
		s.events.emit(func(h Handler) { h.OnMessage(msg) })

	case protocol.UserList:
		if s.cfg.RosterPolicy == RosterReplaceOnSnapshot {
			s.roster.Replace(f.Users)
		} else {
			s.roster.Merge(f.Users)
		}
		users := s.roster.Users()
		s.events.emit(func(h Handler) { h.OnRosterSnapshot(users) })

	case protocol.UserJoin:
		s.roster.Add(f.User)
		s.events.emit(func(h Handler) { h.OnUserJoined(f.User) })

	case protocol.UserLeave:
		s.roster.Remove(f.User)
		s.events.emit(func(h Handler) { h.OnUserLeft(f.User) })

	case protocol.PrivateMessage:
		s.events.emit(func(h Handler) { h.OnPrivateMessage(f.User, f.Message) })

	case protocol.PrivateMessageDelivered:
		s.events.emit(func(h Handler) { h.OnPrivateMessageDelivered(f.Target, f.Message) })

	case protocol.Unknown:
		s.log.Error("unknown message type", "type", string(f.Kind))
	}
}

func (s *Session) handleClose(attempt uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt != s.attempt {
		return
	}

	suppress := s.state == models.StateClosing
	s.conn = nil
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	s.setStateLocked(models.StateDisconnected)

	if s.cfg.RosterPolicy == RosterClearOnDisconnect && s.roster.Len() > 0 {
		s.roster.Clear()
		s.events.emit(func(h Handler) { h.OnRosterSnapshot([]string{}) })
	}

	if suppress {
		s.log.Info("disconnected")
		return
	}
	s.scheduleReconnectLocked()
}

func (s *Session) scheduleReconnectLocked() {
	s.reconnectID++
	id := s.reconnectID
	delay := s.cfg.ReconnectDelay

	s.log.Info("connection lost, reconnecting", "delay", delay)
	s.reconnect = s.afterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if id != s.reconnectID || s.state != models.StateDisconnected {
			return
		}
		s.reconnect = nil
		s.startAttemptLocked()
	})
}

func (s *Session) stopReconnectLocked() {
	s.reconnectID++
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
}
