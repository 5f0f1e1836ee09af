package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"roomchat/internal/content"

	"github.com/gorilla/websocket"
)

// Server upgrades room requests to websocket connections.
//
// It is a development stand-in for the real broker: the user is whoever
// the request claims to be, via "Authorization: Token <user>" or ?user=.
type Server struct {
	hub      *Hub
	upgrader *websocket.Upgrader
}

func NewServer(hub *Hub) *Server {
	return &Server{
		hub: hub,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Dev server, any origin
			},
		},
	}
}

// HandleConnections serves GET /wss/chat/{room}/.
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room")
	if roomID == "" {
		http.Error(w, "Room is required", http.StatusBadRequest)
		return
	}

	userID, err := identify(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("error upgrading to websocket: %v", err)
		return
	}

	log.Printf("%s joined room %s", userID, roomID)
	conn := NewConnection(s.hub, ws, roomID, userID)
	if err := conn.Handle(r.Context()); err != nil && !isClosedError(err) {
		log.Printf("connection error for %s in %s: %v", userID, roomID, err)
	}
	log.Printf("%s left room %s", userID, roomID)
}

func identify(r *http.Request) (string, error) {
	userID := r.URL.Query().Get("user")
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Token ")
		if !ok {
			return "", errors.New("unsupported authorization scheme")
		}
		userID = strings.TrimSpace(token)
	}
	if err := content.ValidateUserID(userID); err != nil {
		return "", err
	}
	return userID, nil
}

func isClosedError(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		strings.Contains(err.Error(), "use of closed network connection")
}
