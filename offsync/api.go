// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SyncVersionHeader carries the pending change's local creation timestamp
// (unix milliseconds) so the server can detect that the document moved since
// the client's last known state.
const SyncVersionHeader = "X-Sync-Version"

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/%s/docs", strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(collection))
}

func (c *Client) documentURL(collection, documentID string) string {
	return c.collectionURL(collection) + "/" + url.PathEscape(documentID)
}

// doRequest performs one API call under the configured per-request timeout
// and returns the response status and body. Transport-level failures come
// back as errors; HTTP error statuses do not.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, payload any, syncVersion string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if syncVersion != "" {
		httpReq.Header.Set(SyncVersionHeader, syncVersion)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
