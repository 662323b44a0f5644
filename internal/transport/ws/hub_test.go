package ws

import (
	"testing"

	"huddle/internal/proto"
)

// drain collects everything currently queued on a connection.
func drain(c *Conn) []proto.Envelope {
	var out []proto.Envelope
	for {
		select {
		case env := <-c.Outbound():
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestJoinLeaveGroupAccounting(t *testing.T) {
	hub := NewHub()
	a := NewConn("a", hub)
	b := NewConn("b", hub)
	hub.Register(a)
	hub.Register(b)

	a.Join("lobby")
	b.Join("lobby")
	if got := hub.GroupSize("lobby"); got != 2 {
		t.Fatalf("GroupSize = %d, want 2", got)
	}

	members := hub.GroupMembers("lobby")
	if len(members) != 2 {
		t.Fatalf("GroupMembers = %v, want two ids", members)
	}

	a.Leave("lobby")
	if got := hub.GroupSize("lobby"); got != 1 {
		t.Fatalf("GroupSize after leave = %d, want 1", got)
	}
	if got := hub.GroupSize("unknown"); got != 0 {
		t.Fatalf("GroupSize of unknown group = %d, want 0", got)
	}
}

func TestBroadcastReachesEveryMember(t *testing.T) {
	hub := NewHub()
	a := NewConn("a", hub)
	b := NewConn("b", hub)
	hub.Register(a)
	hub.Register(b)
	a.Join("lobby")
	b.Join("lobby")

	hub.Broadcast("lobby", "hello", map[string]string{"msg": "hi"})

	for _, c := range []*Conn{a, b} {
		got := drain(c)
		if len(got) != 1 || got[0].Event != "hello" {
			t.Fatalf("conn %s received %v, want one hello envelope", c.ID(), got)
		}
	}
}

func TestEmitToExcludesSender(t *testing.T) {
	hub := NewHub()
	a := NewConn("a", hub)
	b := NewConn("b", hub)
	hub.Register(a)
	hub.Register(b)
	a.Join("lobby")
	b.Join("lobby")

	a.EmitTo("lobby", "user-join", map[string]string{"id": "a"})

	if got := drain(a); len(got) != 0 {
		t.Fatalf("sender received its own broadcast: %v", got)
	}
	if got := drain(b); len(got) != 1 || got[0].Event != "user-join" {
		t.Fatalf("peer received %v, want one user-join envelope", got)
	}
}

func TestUnregisterSweepsGroups(t *testing.T) {
	hub := NewHub()
	a := NewConn("a", hub)
	hub.Register(a)
	a.Join("lobby")
	a.Join("arena")

	hub.Unregister(a)

	if hub.GroupSize("lobby") != 0 || hub.GroupSize("arena") != 0 {
		t.Fatal("unregister left the connection in a group")
	}
}
