// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

// Package offsync implements the offline-first synchronization engine for
// paperdb clients: a durable local queue of pending writes, a local mirror of
// server documents, bidirectional reconciliation against the paperdb document
// API, and pluggable conflict-resolution strategies.
//
// A Client owns one durable Store, one network Monitor and one periodic sync
// loop. Local mutations are persisted as pending changes before any network
// attempt is made, so a crash never loses the intent to sync.
package offsync

import (
	"time"
)

// Operation identifies the kind of local mutation carried by a pending change.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// Strategy selects how the engine resolves server-reported version conflicts.
type Strategy string

const (
	// StrategyLastWriteWins re-queues the local change with a force-update
	// marker so the server accepts it unconditionally on retry. Default.
	StrategyLastWriteWins Strategy = "last-write-wins"
	// StrategyFirstWriteWins discards the local change; remote state stands.
	StrategyFirstWriteWins Strategy = "first-write-wins"
	// StrategyMerge invokes the configured merge function and re-queues the
	// merged payload.
	StrategyMerge Strategy = "merge"
	// StrategyManual persists a SyncConflict record and waits for an explicit
	// ResolveConflict call.
	StrategyManual Strategy = "manual"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLastWriteWins, StrategyFirstWriteWins, StrategyMerge, StrategyManual:
		return true
	default:
		return false
	}
}

// ForceUpdateKey is the payload marker that tells the server to accept the
// client's version unconditionally, bypassing the optimistic version check.
const ForceUpdateKey = "_forceUpdate"

// Document is a schemaless paperdb document. Server-held documents carry a
// string "id" field.
type Document map[string]any

// ID returns the document's server-assigned identifier, if present.
func (d Document) ID() (string, bool) {
	id, ok := d["id"].(string)
	return id, ok && id != ""
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// MergeFunc combines a conflicting local payload with the server's current
// document into the payload to re-queue. Required for StrategyMerge.
type MergeFunc func(local, remote Document) Document

// Change is a local mutation intent handed to Client.QueueChange. DocumentID
// is required for updates and deletes, and absent for inserts (the server
// assigns the id).
type Change struct {
	Collection string    `json:"collection"`
	Operation  Operation `json:"operation"`
	DocumentID string    `json:"documentId,omitempty"`
	Data       Document  `json:"data,omitempty"`
}

// PendingChange is a persisted, not-yet-confirmed local mutation. Entries are
// reconciled in creation order (strict FIFO) and deleted once the server has
// applied them.
type PendingChange struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Operation  Operation `json:"operation"`
	DocumentID string    `json:"documentId,omitempty"`
	Data       Document  `json:"data,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CachedDocument is one entry of the local mirror, keyed by collection plus
// document id. It is always replaced whole, never partially updated.
type CachedDocument struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"documentId"`
	Data       Document  `json:"data"`
	CachedAt   time.Time `json:"cachedAt"`
}

// SyncConflict is an unresolved divergence recorded under StrategyManual. It
// holds both snapshots so a UI can present the choice, and is deleted by
// ResolveConflict.
type SyncConflict struct {
	ID            string    `json:"id"`
	Collection    string    `json:"collection"`
	DocumentID    string    `json:"documentId"`
	LocalVersion  Document  `json:"localVersion"`
	RemoteVersion Document  `json:"remoteVersion"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SyncReport summarizes one reconciliation cycle.
type SyncReport struct {
	Synced    int `json:"synced"`
	Conflicts int `json:"conflicts"`
}

func nowUTC() time.Time { return time.Now().UTC() }

// SyncStatus is a point-in-time snapshot of the engine, recomputed after
// every cycle and exposed synchronously via Client.Status.
type SyncStatus struct {
	IsSyncing      bool       `json:"isSyncing"`
	IsOffline      bool       `json:"isOffline"`
	PendingChanges int        `json:"pendingChanges"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
}
