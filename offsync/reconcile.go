// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// conflictResponse is the body of a 409 reply: the server's current document.
type conflictResponse struct {
	Remote Document `json:"remote"`
}

// reconcile drains the pending queue against the server in strict FIFO order.
// Per-change failures are contained here: a transient error leaves the change
// queued for the next cycle and never blocks independent changes behind it.
// Only a broken durable store aborts the pass.
func (c *Client) reconcile(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	recs, err := c.store.GetAll(ctx, PartitionPending)
	if err != nil {
		return report, fmt.Errorf("failed to load pending queue: %w", err)
	}

	for _, rec := range recs {
		var ch PendingChange
		if err := json.Unmarshal(rec.Value, &ch); err != nil {
			c.logger.Error("dropping undecodable pending change", "key", rec.Key, "error", err)
			if derr := c.store.Delete(ctx, PartitionPending, rec.Key); derr != nil {
				return report, fmt.Errorf("failed to drop undecodable pending change: %w", derr)
			}
			continue
		}

		status, body, err := c.pushChange(ctx, &ch)
		if err != nil {
			// Network-level failure: retried next cycle without modification.
			c.logger.Warn("change could not be pushed; staying queued",
				"collection", ch.Collection, "op", ch.Operation, "doc", ch.DocumentID, "error", err)
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if err := c.store.Delete(ctx, PartitionPending, ch.ID); err != nil {
				return report, fmt.Errorf("failed to remove applied change from queue: %w", err)
			}
			report.Synced++

		case status == http.StatusConflict:
			var conflict conflictResponse
			if err := json.Unmarshal(body, &conflict); err != nil {
				c.logger.Warn("conflict response had no readable remote document",
					"collection", ch.Collection, "doc", ch.DocumentID, "error", err)
			}
			if err := c.handleConflict(ctx, &ch, conflict.Remote); err != nil {
				return report, err
			}
			report.Conflicts++

		default:
			// Server-side rejection (4xx/5xx): keep the change and move on.
			c.logger.Warn("server rejected change; will retry",
				"status", status, "collection", ch.Collection, "op", ch.Operation, "doc", ch.DocumentID)
		}
	}
	return report, nil
}

// pushChange maps the pending operation onto the document API and performs
// the call. The change's creation timestamp rides along as the optimistic
// concurrency marker.
func (c *Client) pushChange(ctx context.Context, ch *PendingChange) (int, []byte, error) {
	version := strconv.FormatInt(ch.CreatedAt.UnixMilli(), 10)
	switch ch.Operation {
	case OpInsert:
		return c.doRequest(ctx, http.MethodPost, c.collectionURL(ch.Collection), ch.Data, version)
	case OpUpdate:
		return c.doRequest(ctx, http.MethodPatch, c.documentURL(ch.Collection, ch.DocumentID), ch.Data, version)
	case OpDelete:
		return c.doRequest(ctx, http.MethodDelete, c.documentURL(ch.Collection, ch.DocumentID), nil, version)
	default:
		return 0, nil, fmt.Errorf("unknown operation %q", ch.Operation)
	}
}

// handleConflict routes a server-reported version conflict through the
// configured strategy. The original pending change is removed exactly once
// the strategy has produced its resolution action. Store failures here are
// systemic and abort the cycle.
func (c *Client) handleConflict(ctx context.Context, ch *PendingChange, remote Document) error {
	switch c.config.ConflictResolution {
	case StrategyLastWriteWins:
		data := ch.Data.Clone()
		if data == nil {
			data = Document{}
		}
		data[ForceUpdateKey] = true
		return c.requeue(ctx, ch, ch.Operation, data)

	case StrategyFirstWriteWins:
		if err := c.store.Delete(ctx, PartitionPending, ch.ID); err != nil {
			return fmt.Errorf("failed to discard conflicting change: %w", err)
		}
		return nil

	case StrategyMerge:
		merged := c.config.OnConflict(ch.Data.Clone(), remote.Clone())
		return c.requeue(ctx, ch, OpUpdate, merged)

	case StrategyManual:
		conflict := SyncConflict{
			ID:            uuid.NewString(),
			Collection:    ch.Collection,
			DocumentID:    ch.DocumentID,
			LocalVersion:  ch.Data,
			RemoteVersion: remote,
			CreatedAt:     nowUTC(),
		}
		raw, err := json.Marshal(&conflict)
		if err != nil {
			return fmt.Errorf("failed to encode conflict record: %w", err)
		}
		if err := c.store.Put(ctx, PartitionConflicts, Record{Key: conflict.ID, Index: conflict.Collection, Value: raw}); err != nil {
			return fmt.Errorf("failed to persist conflict record: %w", err)
		}
		if err := c.store.Delete(ctx, PartitionPending, ch.ID); err != nil {
			return fmt.Errorf("failed to remove conflicting change from queue: %w", err)
		}
		c.emitter.emit(Event{Type: EventConflict, Conflict: &conflict})
		return nil

	default:
		return fmt.Errorf("unknown conflict resolution strategy %q", c.config.ConflictResolution)
	}
}

// requeue replaces a pending change with its resolution: a
// fresh change id and timestamp, same document, new payload. One-for-one, so
// the capacity limit does not apply.
func (c *Client) requeue(ctx context.Context, old *PendingChange, op Operation, data Document) error {
	if err := c.store.Delete(ctx, PartitionPending, old.ID); err != nil {
		return fmt.Errorf("failed to remove superseded change: %w", err)
	}
	next := PendingChange{
		ID:         uuid.NewString(),
		Collection: old.Collection,
		Operation:  op,
		DocumentID: old.DocumentID,
		Data:       data,
		CreatedAt:  nowUTC(),
	}
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode requeued change: %w", err)
	}
	if err := c.store.Put(ctx, PartitionPending, Record{Key: next.ID, Index: next.Collection, Value: raw}); err != nil {
		return fmt.Errorf("failed to persist requeued change: %w", err)
	}
	return nil
}
