package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"roomchat/internal/ws"
)

// RoomServer serves the websocket room endpoint of the dev broker.
type RoomServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewRoomHandler(hub *ws.Hub) http.Handler {
	server := ws.NewServer(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wss/chat/{room}/", server.HandleConnections)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func NewRoomServer(hub *ws.Hub, addr string) *RoomServer {
	if addr == "" {
		addr = ":8000"
	}

	return &RoomServer{
		server: &http.Server{
			Addr:    addr,
			Handler: NewRoomHandler(hub),
		},
	}
}

func (s *RoomServer) Start() error {
	log.Printf("Room server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *RoomServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
