package ws

import (
	"sort"
	"strings"
	"sync"
	"time"

	"roomchat/internal/content"
	"roomchat/internal/models"
	"roomchat/internal/protocol"
	"roomchat/internal/room"
)

const privateMessagePrefix = "/pm "

type Hub struct {
	// Map of roomID -> Room object
	rooms map[string]*room.Room

	now func() time.Time

	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room.Room),
		now:   time.Now,
	}
}

// Join connects userID to roomID. The returned channel first receives a
// user_list snapshot, then everything addressed to the user.
func (h *Hub) Join(roomID, userID string) chan protocol.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		r = room.New(roomID)
		h.rooms[roomID] = r
	}

	ch := make(chan protocol.Frame, 100)
	if r.Join(userID, ch) {
		r.Broadcast(protocol.UserJoin{User: userID})
	}
	return ch
}

// Leave disconnects one connection of userID and closes its channel.
func (h *Hub) Leave(roomID, userID string, ch chan protocol.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return
	}

	last := r.Leave(userID, ch)
	close(ch)

	if last {
		r.Broadcast(protocol.UserLeave{User: userID})
	}
	if r.Empty() {
		delete(h.rooms, roomID)
	}
}

// Dispatch handles a message sent by userID. Text starting with "/pm <user> "
// is delivered to that user only and never shown to the room, even when
// malformed or when the target is absent; anything else goes to everyone.
func (h *Hub) Dispatch(roomID, userID string, msg models.ClientMessage) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	h.mu.Unlock()

	if !ok || !r.Has(userID) {
		return
	}

	text := strings.TrimSpace(content.Sanitize(msg.Message))
	if text == "" {
		return
	}

	if strings.HasPrefix(text+" ", privateMessagePrefix) {
		target, body, ok := parsePrivateMessage(text)
		if ok && r.SendTo(target, protocol.PrivateMessage{User: userID, Message: body}) {
			r.SendTo(userID, protocol.PrivateMessageDelivered{Target: target, Message: body})
		}
		return
	}

	r.Broadcast(protocol.ChatMessage{
		User:    userID,
		Message: text,
		Time:    h.now().UTC().Format(time.RFC3339),
	})
}

// Rooms lists every non-empty room with its users.
func (h *Hub) Rooms() []models.RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]models.RoomInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		result = append(result, models.RoomInfo{ID: id, Users: r.Users()})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

func parsePrivateMessage(text string) (target, body string, ok bool) {
	rest, found := strings.CutPrefix(text, privateMessagePrefix)
	if !found {
		return "", "", false
	}
	target, body, found = strings.Cut(strings.TrimLeft(rest, " "), " ")
	body = strings.TrimSpace(body)
	if !found || target == "" || body == "" {
		return "", "", false
	}
	return target, body, true
}
