// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// refreshCollections re-fetches every enrolled collection after
// reconciliation, establishing the authoritative post-sync mirror state.
// Refresh is best-effort freshening: a failure for one collection is logged
// and swallowed, since pending-change reconciliation is the
// correctness-critical step.
func (c *Client) refreshCollections(ctx context.Context) {
	for _, collection := range c.config.Collections {
		if err := c.refreshCollection(ctx, collection); err != nil {
			c.logger.Warn("collection refresh failed", "collection", collection, "error", err)
		}
	}
}

// refreshCollection fetches the full document list and replaces the cached
// entries for the collection. Full replace, no delta mechanism.
func (c *Client) refreshCollection(ctx context.Context, collection string) error {
	status, body, err := c.doRequest(ctx, http.MethodGet, c.collectionURL(collection), nil, "")
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("server returned status %d: %s", status, string(body))
	}

	var docs []Document
	if err := json.Unmarshal(body, &docs); err != nil {
		return fmt.Errorf("failed to decode collection listing: %w", err)
	}

	existing, err := c.store.GetAllByIndex(ctx, PartitionDocuments, collection)
	if err != nil {
		return fmt.Errorf("failed to load cached documents: %w", err)
	}
	for _, rec := range existing {
		if err := c.store.Delete(ctx, PartitionDocuments, rec.Key); err != nil {
			return fmt.Errorf("failed to evict cached document %s: %w", rec.Key, err)
		}
	}

	now := nowUTC()
	for _, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			c.logger.Warn("skipping server document without id", "collection", collection)
			continue
		}
		if err := c.putCachedDocument(ctx, CachedDocument{
			Collection: collection,
			DocumentID: id,
			Data:       doc,
			CachedAt:   now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) putCachedDocument(ctx context.Context, cd CachedDocument) error {
	raw, err := json.Marshal(&cd)
	if err != nil {
		return fmt.Errorf("failed to encode cached document: %w", err)
	}
	rec := Record{Key: documentKey(cd.Collection, cd.DocumentID), Index: cd.Collection, Value: raw}
	if err := c.store.Put(ctx, PartitionDocuments, rec); err != nil {
		return fmt.Errorf("failed to cache document %s: %w", rec.Key, err)
	}
	return nil
}

// GetCached returns the mirrored documents of a collection in cache order.
// It never touches the network.
func (c *Client) GetCached(ctx context.Context, collection string) ([]Document, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}
	recs, err := c.store.GetAllByIndex(ctx, PartitionDocuments, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached documents: %w", err)
	}
	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		var cd CachedDocument
		if err := json.Unmarshal(rec.Value, &cd); err != nil {
			return nil, fmt.Errorf("failed to decode cached document %s: %w", rec.Key, err)
		}
		docs = append(docs, cd.Data)
	}
	return docs, nil
}

// Cache seeds or replaces one mirror entry (an optimistic local write). The
// document must carry its id. Whole-document replace; the mirror never holds
// a blend of local and server state.
func (c *Client) Cache(ctx context.Context, collection string, doc Document) error {
	if err := c.ensureReady(); err != nil {
		return err
	}
	id, ok := doc.ID()
	if !ok {
		return ErrMissingDocumentID
	}
	return c.putCachedDocument(ctx, CachedDocument{
		Collection: collection,
		DocumentID: id,
		Data:       doc,
		CachedAt:   nowUTC(),
	})
}

// ClearCache drops the whole local mirror. Pending changes and conflicts are
// kept.
func (c *Client) ClearCache(ctx context.Context) error {
	if err := c.ensureReady(); err != nil {
		return err
	}
	if err := c.store.Clear(ctx, PartitionDocuments); err != nil {
		return fmt.Errorf("failed to clear document cache: %w", err)
	}
	return nil
}
