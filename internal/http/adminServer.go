package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"roomchat/internal/ws"
)

type AdminServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

// RoomsHandler lists every active room and who is in it.
func RoomsHandler(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Rooms()); err != nil {
			log.Printf("failed to encode rooms: %v", err)
		}
	}
}

func NewAdminServer(hub *ws.Hub, addr string) *AdminServer {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/rooms", RoomsHandler(hub))

	if addr == "" {
		addr = "localhost:8001"
	}

	return &AdminServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *AdminServer) Start() error {
	log.Printf("Admin API started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
