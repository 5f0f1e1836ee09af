package room

import (
	"sort"
	"sync"

	"roomchat/internal/protocol"
)

// Room tracks the connections of every user present in a chat room.
// A user may be connected more than once (several tabs); presence only
// changes on the first join and the last leave.
type Room struct {
	ID string

	members map[string]map[chan protocol.Frame]struct{}
	mux     sync.RWMutex
}

func New(id string) *Room {
	return &Room{
		ID:      id,
		members: make(map[string]map[chan protocol.Frame]struct{}),
	}
}

// Join registers ch for userID and queues a user_list snapshot on it
// before any other frame can reach it. It reports whether this is the
// user's first connection to the room.
func (r *Room) Join(userID string, ch chan protocol.Frame) bool {
	r.mux.Lock()
	defer r.mux.Unlock()

	conns, ok := r.members[userID]
	if !ok {
		conns = make(map[chan protocol.Frame]struct{})
		r.members[userID] = conns
	}
	conns[ch] = struct{}{}

	send(ch, protocol.UserList{Users: r.usersLocked()})
	return !ok
}

// Leave unregisters ch and reports whether it was the user's last
// connection. The caller owns ch and may close it afterwards.
func (r *Room) Leave(userID string, ch chan protocol.Frame) bool {
	r.mux.Lock()
	defer r.mux.Unlock()

	conns, ok := r.members[userID]
	if !ok {
		return false
	}
	if _, ok := conns[ch]; !ok {
		return false
	}
	delete(conns, ch)
	if len(conns) > 0 {
		return false
	}
	delete(r.members, userID)
	return true
}

// Broadcast sends f to every connection in the room.
func (r *Room) Broadcast(f protocol.Frame) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	for _, conns := range r.members {
		for ch := range conns {
			send(ch, f)
		}
	}
}

// SendTo sends f to every connection of userID and reports whether the
// user is in the room.
func (r *Room) SendTo(userID string, f protocol.Frame) bool {
	r.mux.RLock()
	defer r.mux.RUnlock()

	conns, ok := r.members[userID]
	if !ok {
		return false
	}
	for ch := range conns {
		send(ch, f)
	}
	return true
}

func (r *Room) Has(userID string) bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	_, ok := r.members[userID]
	return ok
}

func (r *Room) Empty() bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return len(r.members) == 0
}

// Users returns the sorted ids of everyone in the room.
func (r *Room) Users() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.usersLocked()
}

func (r *Room) usersLocked() []string {
	users := make([]string, 0, len(r.members))
	for u := range r.members {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func send(ch chan protocol.Frame, f protocol.Frame) {
	select {
	case ch <- f:
	default:
		// Slow consumer, drop the frame.
	}
}
