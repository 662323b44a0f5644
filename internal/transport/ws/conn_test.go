package ws

import (
	"encoding/json"
	"testing"
)

func TestDispatchRunsAllHandlers(t *testing.T) {
	c := NewConn("a", NewHub())

	var calls []string
	c.On("ping", func(json.RawMessage) { calls = append(calls, "first") })
	c.On("ping", func(json.RawMessage) { calls = append(calls, "second") })

	c.dispatch("ping", nil)
	c.dispatch("ping", nil)

	if len(calls) != 4 {
		t.Fatalf("handlers ran %d times, want 4", len(calls))
	}
}

func TestOnceHandlerFiresOneTime(t *testing.T) {
	c := NewConn("a", NewHub())

	var once, always int
	c.Once("user-props", func(json.RawMessage) { once++ })
	c.On("user-props", func(json.RawMessage) { always++ })

	c.dispatch("user-props", nil)
	c.dispatch("user-props", nil)

	if once != 1 {
		t.Fatalf("once handler fired %d times, want 1", once)
	}
	if always != 2 {
		t.Fatalf("persistent handler fired %d times, want 2", always)
	}
}

func TestOffRemovesHandlers(t *testing.T) {
	c := NewConn("a", NewHub())

	fired := false
	c.On("ping", func(json.RawMessage) { fired = true })
	c.Off("ping")

	c.dispatch("ping", nil)

	if fired {
		t.Fatal("handler fired after Off")
	}
}

func TestDispatchPassesPayload(t *testing.T) {
	c := NewConn("a", NewHub())

	var got json.RawMessage
	c.On("user-props", func(p json.RawMessage) { got = p })

	c.dispatch("user-props", json.RawMessage(`{"name":"zed"}`))

	var props map[string]string
	if err := json.Unmarshal(got, &props); err != nil {
		t.Fatal(err)
	}
	if props["name"] != "zed" {
		t.Fatalf("payload = %v, want name=zed", props)
	}
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	c := NewConn("a", NewHub())

	for i := 0; i < outboundBuffer+10; i++ {
		c.Emit("tick", i)
	}

	if got := len(drain(c)); got != outboundBuffer {
		t.Fatalf("queued %d envelopes, want buffer cap %d", got, outboundBuffer)
	}
}
