package core

import "sync"

// EventKind is a membership or property notification emitted by an entity.
type EventKind int

const (
	// EventUserEnter fires after a user's channel joined a room's group.
	EventUserEnter EventKind = iota
	// EventUserLeave fires after a user's channel left a room's group.
	EventUserLeave
	// EventRoomEmpty fires when a closable room's occupancy reaches zero.
	EventRoomEmpty
	// EventRoomFull fires when occupancy reaches a room's max.
	EventRoomFull
	// EventPropUpdate fires after a user's properties were replaced.
	EventPropUpdate
)

// Event carries the entity the notification concerns.
type Event struct {
	Kind EventKind
	Room *Room
	User *User
}

// Subscription cancels a previously registered handler.
type Subscription struct {
	cancel func()
}

// Cancel unregisters the handler. Safe to call more than once.
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// emitter is the observer registry embedded in Room and User.
type emitter struct {
	mu   sync.Mutex
	next int
	subs map[EventKind]map[int]func(Event)
}

// Subscribe registers fn for events of the given kind.
func (e *emitter) Subscribe(kind EventKind, fn func(Event)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[EventKind]map[int]func(Event))
	}
	if e.subs[kind] == nil {
		e.subs[kind] = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.subs[kind][id] = fn

	return Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.subs[kind], id)
		e.mu.Unlock()
	}}
}

// emit invokes every handler registered for the event's kind, synchronously.
func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	handlers := make([]func(Event), 0, len(e.subs[ev.Kind]))
	for _, fn := range e.subs[ev.Kind] {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
