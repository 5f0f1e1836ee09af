package session

import (
	"sync"

	"roomchat/internal/models"
)

// Handler receives session events. Calls for one session are serialized
// and delivered in order; a handler may call back into the session.
type Handler interface {
	OnMessage(msg models.ChatMessage)
	OnUserJoined(user string)
	OnUserLeft(user string)
	OnRosterSnapshot(users []string)
	OnPrivateMessage(from, text string)
	OnPrivateMessageDelivered(to, text string)
	OnConnectionStateChanged(state models.ConnectionState)
}

// HandlerFuncs adapts a set of optional functions to Handler.
// Nil fields are skipped.
type HandlerFuncs struct {
	Message                 func(msg models.ChatMessage)
	UserJoined              func(user string)
	UserLeft                func(user string)
	RosterSnapshot          func(users []string)
	PrivateMessage          func(from, text string)
	PrivateMessageDelivered func(to, text string)
	ConnectionStateChanged  func(state models.ConnectionState)
}

func (h HandlerFuncs) OnMessage(msg models.ChatMessage) {
	if h.Message != nil {
		h.Message(msg)
	}
}

func (h HandlerFuncs) OnUserJoined(user string) {
	if h.UserJoined != nil {
		h.UserJoined(user)
	}
}

func (h HandlerFuncs) OnUserLeft(user string) {
	if h.UserLeft != nil {
		h.UserLeft(user)
	}
}

func (h HandlerFuncs) OnRosterSnapshot(users []string) {
	if h.RosterSnapshot != nil {
		h.RosterSnapshot(users)
	}
}

func (h HandlerFuncs) OnPrivateMessage(from, text string) {
	if h.PrivateMessage != nil {
		h.PrivateMessage(from, text)
	}
}

func (h HandlerFuncs) OnPrivateMessageDelivered(to, text string) {
	if h.PrivateMessageDelivered != nil {
		h.PrivateMessageDelivered(to, text)
	}
}

func (h HandlerFuncs) OnConnectionStateChanged(state models.ConnectionState) {
	if h.ConnectionStateChanged != nil {
		h.ConnectionStateChanged(state)
	}
}

// dispatcher delivers events to a handler one at a time, in the order they
// were emitted. At most one drain goroutine runs at any moment and it exits
// once the queue is empty.
type dispatcher struct {
	handler Handler

	mu      sync.Mutex
	queue   []func(Handler)
	running bool
}

func newDispatcher(h Handler) *dispatcher {
	if h == nil {
		h = HandlerFuncs{}
	}
	return &dispatcher{handler: h}
}

func (d *dispatcher) emit(event func(Handler)) {
	d.mu.Lock()
	d.queue = append(d.queue, event)
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	go d.drain()
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		event := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		event(d.handler)
	}
}
