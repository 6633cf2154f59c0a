// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import "sync"

// Monitor reports network reachability and publishes online/offline
// transitions. While offline the orchestrator suppresses sync attempts
// entirely instead of issuing network calls that would hang or error.
type Monitor interface {
	Online() bool
	// Subscribe registers fn to be called with the new state on every
	// transition and returns an unsubscribe handle.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// StaticMonitor always reports online and never transitions. It is the
// default for hosts without native connectivity events; sync then behaves as
// polling-only.
type StaticMonitor struct{}

func (StaticMonitor) Online() bool                       { return true }
func (StaticMonitor) Subscribe(func(online bool)) func() { return func() {} }

// SwitchMonitor is an explicitly toggled Monitor for hosts that track their
// own connectivity (and for tests). SetOnline notifies subscribers only on
// actual transitions.
type SwitchMonitor struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewSwitchMonitor returns a SwitchMonitor with the given initial state.
func NewSwitchMonitor(online bool) *SwitchMonitor {
	return &SwitchMonitor{online: online, subs: make(map[int]func(bool))}
}

func (m *SwitchMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *SwitchMonitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetOnline transitions the monitor. A no-op when the state is unchanged.
func (m *SwitchMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
}
