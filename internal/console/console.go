// Package console renders session events as lines of text.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"roomchat/internal/content"
	"roomchat/internal/models"
)

// Printer implements session.Handler on top of an io.Writer.
type Printer struct {
	w  io.Writer
	mu sync.Mutex
}

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) OnMessage(msg models.ChatMessage) {
	if msg.Time != "" {
		p.printf("[%s] %s: %s", content.Strip(msg.Time), content.Strip(msg.User), content.Strip(msg.Message))
		return
	}
	p.printf("%s: %s", content.Strip(msg.User), content.Strip(msg.Message))
}

func (p *Printer) OnUserJoined(user string) {
	p.printf("* %s joined the room.", content.Strip(user))
}

func (p *Printer) OnUserLeft(user string) {
	p.printf("* %s left the room.", content.Strip(user))
}

func (p *Printer) OnRosterSnapshot(users []string) {
	p.Roster(users)
}

func (p *Printer) OnPrivateMessage(from, text string) {
	p.printf("private_message from %s: %s", content.Strip(from), content.Strip(text))
}

func (p *Printer) OnPrivateMessageDelivered(to, text string) {
	p.printf("private_message to %s: %s", content.Strip(to), content.Strip(text))
}

func (p *Printer) OnConnectionStateChanged(state models.ConnectionState) {
	p.printf("-- %s", state)
}

// Roster prints the list of online users.
func (p *Printer) Roster(users []string) {
	if len(users) == 0 {
		p.printf("-- nobody online")
		return
	}
	clean := make([]string, len(users))
	for i, u := range users {
		clean[i] = content.Strip(u)
	}
	p.printf("-- online: %s", strings.Join(clean, ", "))
}

// Notice prints a local message that did not come from the server.
func (p *Printer) Notice(format string, args ...any) {
	p.printf("-- "+format, args...)
}
