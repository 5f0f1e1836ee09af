package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	roomhttp "roomchat/internal/http"
	"roomchat/internal/models"
	"roomchat/internal/session"
	"roomchat/internal/ws"

	"github.com/stretchr/testify/require"
)

type events struct {
	mu        sync.Mutex
	messages  []models.ChatMessage
	private   []string
	delivered []string
	left      []string
}

func (e *events) handler() session.HandlerFuncs {
	return session.HandlerFuncs{
		Message: func(msg models.ChatMessage) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.messages = append(e.messages, msg)
		},
		PrivateMessage: func(from, text string) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.private = append(e.private, from+": "+text)
		},
		PrivateMessageDelivered: func(to, text string) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.delivered = append(e.delivered, to+": "+text)
		},
		UserLeft: func(user string) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.left = append(e.left, user)
		},
	}
}

func (e *events) snapshot() (messages []models.ChatMessage, private, delivered, left []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ChatMessage(nil), e.messages...),
		append([]string(nil), e.private...),
		append([]string(nil), e.delivered...),
		append([]string(nil), e.left...)
}

func startRoomServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(roomhttp.NewRoomHandler(ws.NewHub()))
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().String()
}

func joinRoom(t *testing.T, host, user string, h session.Handler) *session.Session {
	t.Helper()

	header := http.Header{}
	header.Set("Authorization", "Token "+user)

	sess, err := session.New(session.Config{
		Scheme:         "ws",
		Host:           host,
		Room:           "lobby",
		Header:         header,
		ReconnectDelay: 50 * time.Millisecond,
	}, h)
	require.NoError(t, err)
	require.NoError(t, sess.Connect())
	t.Cleanup(func() { _ = sess.Disconnect() })

	require.Eventually(t, func() bool {
		return sess.State() == models.StateOpen
	}, 5*time.Second, 10*time.Millisecond, "%s never connected", user)
	return sess
}

func TestIntegration(t *testing.T) {
	host := startRoomServer(t)

	var aliceEvents, bobEvents events
	alice := joinRoom(t, host, "alice", aliceEvents.handler())
	bob := joinRoom(t, host, "bob", bobEvents.handler())

	// Step 1: both rosters converge
	require.Eventually(t, func() bool {
		a, b := alice.Roster(), bob.Roster()
		return len(a) == 2 && len(b) == 2 && a[0] == "alice" && b[1] == "bob"
	}, 5*time.Second, 10*time.Millisecond)

	// Step 2: public message reaches everybody, sender included
	require.NoError(t, bob.Send("hello <b>world</b>"))
	require.Eventually(t, func() bool {
		a, _, _, _ := aliceEvents.snapshot()
		b, _, _, _ := bobEvents.snapshot()
		return len(a) == 1 && len(b) == 1
	}, 5*time.Second, 10*time.Millisecond)

	msgs, _, _, _ := aliceEvents.snapshot()
	require.Equal(t, "bob", msgs[0].User)
	require.Equal(t, "hello <b>world</b>", msgs[0].Message)
	_, err := time.Parse(time.RFC3339, msgs[0].Time)
	require.NoError(t, err)

	// Step 3: private message goes to the target only and is confirmed to the sender
	require.NoError(t, alice.Send("/pm bob psst"))
	require.Eventually(t, func() bool {
		_, _, delivered, _ := aliceEvents.snapshot()
		_, private, _, _ := bobEvents.snapshot()
		return len(delivered) == 1 && len(private) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, private, _, _ := bobEvents.snapshot()
	require.Equal(t, []string{"alice: psst"}, private)
	_, _, delivered, _ := aliceEvents.snapshot()
	require.Equal(t, []string{"bob: psst"}, delivered)

	msgs, _, _, _ = bobEvents.snapshot()
	require.Len(t, msgs, 1, "private message must not be broadcast")

	// Step 4: leaving is observed by the remaining member
	require.NoError(t, bob.Disconnect())
	require.Eventually(t, func() bool {
		_, _, _, left := aliceEvents.snapshot()
		return len(left) == 1 && left[0] == "bob"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"alice"}, alice.Roster())

	require.Eventually(t, func() bool {
		return bob.State() == models.StateDisconnected
	}, 5*time.Second, 10*time.Millisecond)
	require.Empty(t, bob.Roster())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun(t *testing.T) {
	host := startRoomServer(t)

	var bobEvents events
	joinRoom(t, host, "bob", bobEvents.handler())

	t.Setenv("ROOMCHAT_HOST", host)
	t.Setenv("ROOMCHAT_SCHEME", "ws")
	t.Setenv("ROOMCHAT_TOKEN", "alice")
	t.Setenv("ROOMCHAT_ROOM", "elsewhere")

	in, stdin := io.Pipe()
	defer func() { _ = stdin.Close() }()
	out := &syncBuffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-room", "lobby"}, in, out)
	}()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("-- online: alice, bob"))
	}, 5*time.Second, 10*time.Millisecond, "output so far:\n%s", out.String())

	_, err := io.WriteString(stdin, "hi from the terminal\n/who\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs, _, _, _ := bobEvents.snapshot()
		return len(msgs) == 1 && msgs[0].User == "alice" && msgs[0].Message == "hi from the terminal"
	}, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(stdin, "/quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after /quit")
	}

	require.Contains(t, out.String(), "-- joining ws://"+host+"/wss/chat/lobby/")
	require.Contains(t, out.String(), "-- open")
}

func TestRun_RequiresHost(t *testing.T) {
	t.Setenv("ROOMCHAT_HOST", "")
	t.Setenv("ROOMCHAT_ROOM", "lobby")

	err := run(context.Background(), nil, bytes.NewReader(nil), io.Discard)
	require.ErrorContains(t, err, "ROOMCHAT_HOST")
}
