// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import "errors"

var (
	// ErrStorageUnavailable means the durable store could not be opened or
	// used. Fatal to Init; never retried.
	ErrStorageUnavailable = errors.New("offsync: durable storage unavailable")

	// ErrNotFound is returned by Store.Get for a missing key.
	ErrNotFound = errors.New("offsync: record not found")

	// ErrQueueFull is returned by QueueChange when the pending queue has
	// reached MaxQueueSize. Callers must sync before queueing more changes.
	ErrQueueFull = errors.New("offsync: pending change queue is full")

	// ErrConflictNotFound is returned by ResolveConflict for an unknown id.
	ErrConflictNotFound = errors.New("offsync: conflict not found")

	// ErrMissingDocumentID is returned when an update or delete carries no
	// document id, or a cached document has none.
	ErrMissingDocumentID = errors.New("offsync: document id is required")

	// ErrNotInitialized is returned when the client is used before Init.
	ErrNotInitialized = errors.New("offsync: client is not initialized")

	// ErrClosed is returned after Destroy.
	ErrClosed = errors.New("offsync: client is destroyed")
)
