// Command devroom runs a development chat broker that speaks the room
// protocol, so the client can be tried without the production backend.
package main

import (
	"context"
	"errors"
	"log"
	oshttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/internal/config"
	"roomchat/internal/http"
	"roomchat/internal/ws"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	hub := ws.NewHub()

	roomServer := http.NewRoomServer(hub, cfg.Addr)
	adminServer := http.NewAdminServer(hub, cfg.AdminAddr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := roomServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := adminServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := roomServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Room server shutdown error: %v", err)
		}
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin server shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
