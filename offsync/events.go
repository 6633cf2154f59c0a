// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import "sync"

// EventType identifies a lifecycle event published to subscribers.
type EventType string

const (
	EventSyncStart    EventType = "sync:start"
	EventSyncComplete EventType = "sync:complete"
	EventSyncError    EventType = "sync:error"
	EventOnline       EventType = "online"
	EventOffline      EventType = "offline"
	EventConflict     EventType = "conflict"
)

// Event is one lifecycle notification. Report is set on sync:complete, Err on
// sync:error, Conflict on conflict.
type Event struct {
	Type     EventType
	Report   *SyncReport
	Err      error
	Conflict *SyncConflict
}

// emitter is a per-client publish-subscribe registry. There is no global
// listener set; each Client owns exactly one emitter.
type emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newEmitter() *emitter {
	return &emitter{subs: make(map[int]func(Event))}
}

// subscribe registers fn and returns its unsubscribe handle.
func (e *emitter) subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// emit delivers ev to all current subscribers. Listeners run outside the
// lock so they may subscribe or unsubscribe re-entrantly.
func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	listeners := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
