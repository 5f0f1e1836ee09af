package room

import (
	"testing"

	"roomchat/internal/protocol"
)

func TestNew(t *testing.T) {
	r := New("lobby")
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.ID != "lobby" {
		t.Errorf("expected ID lobby, got %s", r.ID)
	}
	if !r.Empty() {
		t.Error("new room should be empty")
	}
}

func TestRoom_JoinSendsSnapshot(t *testing.T) {
	r := New("lobby")

	alice := make(chan protocol.Frame, 10)
	if !r.Join("alice", alice) {
		t.Error("first join of alice should be reported")
	}

	bob := make(chan protocol.Frame, 10)
	r.Join("bob", bob)

	f := <-bob
	list, ok := f.(protocol.UserList)
	if !ok {
		t.Fatalf("expected user_list, got %T", f)
	}
	if len(list.Users) != 2 || list.Users[0] != "alice" || list.Users[1] != "bob" {
		t.Errorf("unexpected snapshot %v", list.Users)
	}
}

func TestRoom_MultipleConnections(t *testing.T) {
	r := New("lobby")

	tab1 := make(chan protocol.Frame, 10)
	tab2 := make(chan protocol.Frame, 10)

	if !r.Join("alice", tab1) {
		t.Error("first connection should be reported as first")
	}
	if r.Join("alice", tab2) {
		t.Error("second connection should not be reported as first")
	}

	if r.Leave("alice", tab1) {
		t.Error("alice still has a connection")
	}
	if !r.Has("alice") {
		t.Error("alice should still be present")
	}
	if !r.Leave("alice", tab2) {
		t.Error("last connection should be reported")
	}
	if r.Has("alice") || !r.Empty() {
		t.Error("room should be empty")
	}

	// Leaving twice is harmless.
	if r.Leave("alice", tab2) {
		t.Error("unknown connection should not be reported")
	}
}

func TestRoom_BroadcastAndSendTo(t *testing.T) {
	r := New("lobby")

	alice := make(chan protocol.Frame, 10)
	bob := make(chan protocol.Frame, 10)
	r.Join("alice", alice)
	r.Join("bob", bob)
	<-alice
	<-bob

	r.Broadcast(protocol.ChatMessage{User: "alice", Message: "hi"})
	for name, ch := range map[string]chan protocol.Frame{"alice": alice, "bob": bob} {
		select {
		case f := <-ch:
			if msg, ok := f.(protocol.ChatMessage); !ok || msg.Message != "hi" {
				t.Errorf("%s received %v", name, f)
			}
		default:
			t.Errorf("%s did not receive broadcast", name)
		}
	}

	if !r.SendTo("bob", protocol.PrivateMessage{User: "alice", Message: "psst"}) {
		t.Error("bob should be reachable")
	}
	if len(alice) != 0 {
		t.Error("alice should not receive bob's private message")
	}
	if _, ok := (<-bob).(protocol.PrivateMessage); !ok {
		t.Error("bob did not receive private message")
	}

	if r.SendTo("carol", protocol.PrivateMessage{User: "alice", Message: "psst"}) {
		t.Error("carol is not in the room")
	}
}

func TestRoom_SlowConsumerDoesNotBlock(t *testing.T) {
	r := New("lobby")

	ch := make(chan protocol.Frame, 1)
	r.Join("alice", ch) // fills the buffer with the snapshot

	done := make(chan struct{})
	go func() {
		r.Broadcast(protocol.UserJoin{User: "bob"})
		close(done)
	}()
	<-done
}
