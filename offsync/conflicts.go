// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Resolution is the caller's decision for one manual conflict: keep the local
// snapshot, keep the remote snapshot, or supply a replacement payload.
type Resolution struct {
	choice string
	data   Document
}

const (
	choiceLocal   = "local"
	choiceRemote  = "remote"
	choiceReplace = "replace"
)

// KeepLocal resolves with the conflict's local snapshot.
func KeepLocal() Resolution { return Resolution{choice: choiceLocal} }

// KeepRemote resolves with the conflict's remote snapshot.
func KeepRemote() Resolution { return Resolution{choice: choiceRemote} }

// ReplaceWith resolves with an explicit replacement payload.
func ReplaceWith(data Document) Resolution { return Resolution{choice: choiceReplace, data: data} }

// GetConflicts returns all unresolved conflicts in the order they were
// recorded.
func (c *Client) GetConflicts(ctx context.Context) ([]SyncConflict, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}
	recs, err := c.store.GetAll(ctx, PartitionConflicts)
	if err != nil {
		return nil, fmt.Errorf("failed to load conflicts: %w", err)
	}
	conflicts := make([]SyncConflict, 0, len(recs))
	for _, rec := range recs {
		var sc SyncConflict
		if err := json.Unmarshal(rec.Value, &sc); err != nil {
			return nil, fmt.Errorf("failed to decode conflict %s: %w", rec.Key, err)
		}
		conflicts = append(conflicts, sc)
	}
	return conflicts, nil
}

// ResolveConflict settles one manual conflict: it re-queues an update
// carrying the chosen payload and deletes the conflict record. When the
// pending queue is full the conflict is left in place and ErrQueueFull is
// returned, so the decision is never silently lost.
func (c *Client) ResolveConflict(ctx context.Context, conflictID string, res Resolution) error {
	if err := c.ensureReady(); err != nil {
		return err
	}

	raw, err := c.store.Get(ctx, PartitionConflicts, conflictID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflictNotFound
		}
		return fmt.Errorf("failed to load conflict %s: %w", conflictID, err)
	}
	var conflict SyncConflict
	if err := json.Unmarshal(raw, &conflict); err != nil {
		return fmt.Errorf("failed to decode conflict %s: %w", conflictID, err)
	}

	var data Document
	switch res.choice {
	case choiceLocal:
		data = conflict.LocalVersion
	case choiceRemote:
		data = conflict.RemoteVersion
	case choiceReplace:
		if res.data == nil {
			return fmt.Errorf("replacement resolution requires a payload")
		}
		data = res.data
	default:
		return fmt.Errorf("resolution must be KeepLocal, KeepRemote or ReplaceWith")
	}

	if _, err := c.enqueue(ctx, Change{
		Collection: conflict.Collection,
		Operation:  OpUpdate,
		DocumentID: conflict.DocumentID,
		Data:       data,
	}, true); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, PartitionConflicts, conflictID); err != nil {
		return fmt.Errorf("failed to remove resolved conflict: %w", err)
	}
	return nil
}
