package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a message oriented connection owned by a session.
// *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

// WebsocketDialer dials real websocket connections.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	return conn, nil
}

// HandshakeError is returned when the server answered the upgrade
// request with something other than 101.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Err.Error()
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}
