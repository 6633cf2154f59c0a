package offsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticMonitor(t *testing.T) {
	var m StaticMonitor
	require.True(t, m.Online())
	unsubscribe := m.Subscribe(func(bool) { t.Fatal("static monitor never transitions") })
	unsubscribe()
}

func TestSwitchMonitorTransitions(t *testing.T) {
	m := NewSwitchMonitor(true)
	require.True(t, m.Online())

	var seen []bool
	unsubscribe := m.Subscribe(func(online bool) { seen = append(seen, online) })

	m.SetOnline(true) // no transition, no notification
	require.Empty(t, seen)

	m.SetOnline(false)
	m.SetOnline(false)
	m.SetOnline(true)
	require.Equal(t, []bool{false, true}, seen)
	require.True(t, m.Online())

	unsubscribe()
	m.SetOnline(false)
	require.Len(t, seen, 2)
}

func TestEmitterUnsubscribe(t *testing.T) {
	e := newEmitter()

	var a, b int
	unsubA := e.subscribe(func(Event) { a++ })
	e.subscribe(func(Event) { b++ })

	e.emit(Event{Type: EventSyncStart})
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)

	unsubA()
	e.emit(Event{Type: EventSyncComplete})
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestEmitterReentrantSubscribe(t *testing.T) {
	e := newEmitter()

	calls := 0
	e.subscribe(func(Event) {
		calls++
		// Subscribing from inside a listener must not deadlock.
		e.subscribe(func(Event) { calls++ })
	})

	e.emit(Event{Type: EventSyncStart})
	require.Equal(t, 1, calls)
	e.emit(Event{Type: EventSyncStart})
	require.Equal(t, 3, calls)
}
