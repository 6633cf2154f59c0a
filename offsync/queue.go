// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// QueueChange persists a local mutation as a pending change before any
// network attempt is made (write-ahead). It fails with ErrQueueFull when the
// queue holds MaxQueueSize entries; callers must sync before queueing more.
func (c *Client) QueueChange(ctx context.Context, ch Change) error {
	if err := c.ensureReady(); err != nil {
		return err
	}
	_, err := c.enqueue(ctx, ch, true)
	return err
}

// GetPendingChanges returns the queue in reconciliation (FIFO) order.
func (c *Client) GetPendingChanges(ctx context.Context) ([]PendingChange, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}
	recs, err := c.store.GetAll(ctx, PartitionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending queue: %w", err)
	}
	changes := make([]PendingChange, 0, len(recs))
	for _, rec := range recs {
		var pc PendingChange
		if err := json.Unmarshal(rec.Value, &pc); err != nil {
			return nil, fmt.Errorf("failed to decode pending change %s: %w", rec.Key, err)
		}
		changes = append(changes, pc)
	}
	return changes, nil
}

// enqueue validates ch, assigns id and timestamp and persists it. The
// capacity check is skipped for internal one-for-one requeues during
// conflict handling, which never grow the queue.
func (c *Client) enqueue(ctx context.Context, ch Change, checkCapacity bool) (*PendingChange, error) {
	if ch.Collection == "" {
		return nil, fmt.Errorf("change collection must not be empty")
	}
	if !ch.Operation.Valid() {
		return nil, fmt.Errorf("unknown operation %q", ch.Operation)
	}
	if ch.Operation != OpInsert && ch.DocumentID == "" {
		return nil, ErrMissingDocumentID
	}

	if checkCapacity {
		n, err := c.store.Count(ctx, PartitionPending)
		if err != nil {
			return nil, fmt.Errorf("failed to check queue capacity: %w", err)
		}
		if n >= c.config.MaxQueueSize {
			return nil, fmt.Errorf("%w (max %d)", ErrQueueFull, c.config.MaxQueueSize)
		}
	}

	pc := PendingChange{
		ID:         uuid.NewString(),
		Collection: ch.Collection,
		Operation:  ch.Operation,
		DocumentID: ch.DocumentID,
		Data:       ch.Data,
		CreatedAt:  nowUTC(),
	}
	raw, err := json.Marshal(&pc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending change: %w", err)
	}
	if err := c.store.Put(ctx, PartitionPending, Record{Key: pc.ID, Index: pc.Collection, Value: raw}); err != nil {
		return nil, fmt.Errorf("failed to persist pending change: %w", err)
	}

	c.setStatus(func(s *SyncStatus) { s.PendingChanges++ })
	return &pc, nil
}
