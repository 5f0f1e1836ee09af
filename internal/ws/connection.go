package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roomchat/internal/models"
	"roomchat/internal/protocol"

	"github.com/gorilla/websocket"
)

type wsConnection interface {
	Close() error
	WriteMessage(messageType int, data []byte) error
	ReadJSON(v interface{}) error
}

type messageHub interface {
	Join(roomID, userID string) chan protocol.Frame
	Leave(roomID, userID string, ch chan protocol.Frame)
	Dispatch(roomID, userID string, msg models.ClientMessage)
}

type Connection struct {
	ws         wsConnection
	hub        messageHub
	roomID     string
	userID     string
	fromClient chan models.ClientMessage
	fromServer chan protocol.Frame
	errorCh    chan error
}

func NewConnection(
	hub messageHub,
	ws wsConnection,
	roomID string,
	userID string,
) *Connection {
	return &Connection{
		ws:         ws,
		hub:        hub,
		roomID:     roomID,
		userID:     userID,
		fromClient: make(chan models.ClientMessage),
		fromServer: hub.Join(roomID, userID),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Leave(c.roomID, c.userID, c.fromServer)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpMessages(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	_ = c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpMessages(ctx context.Context) error {
	for {
		var msg models.ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return err
		}
		select {
		case c.fromClient <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-c.fromClient:
			c.hub.Dispatch(c.roomID, c.userID, msg)
		case f, ok := <-c.fromServer:
			if !ok {
				return nil
			}
			data, err := protocol.EncodeFrame(f)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", f.Type(), err)
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
