// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds configuration for the offline sync client.
type Config struct {
	BaseURL     string   // e.g. "https://api.paperdb.dev/v1/projects/<id>"
	APIKey      string   // sent as "Authorization: Bearer <APIKey>"
	Collections []string // collections enrolled in offline sync (required)

	// ConflictResolution selects the strategy applied to server-reported
	// version conflicts. Defaults to StrategyLastWriteWins.
	ConflictResolution Strategy
	// OnConflict merges local and remote payloads. Required for StrategyMerge.
	OnConflict MergeFunc

	SyncInterval   time.Duration // periodic cycle interval, default 30s
	MaxQueueSize   int           // pending queue capacity, default 1000
	RequestTimeout time.Duration // per-request deadline, default 15s

	Logger *slog.Logger // defaults to slog.Default()
}

// DefaultConfig returns a Config with the default strategy, interval, queue
// capacity and request timeout for the given API endpoint and collections.
func DefaultConfig(baseURL, apiKey string, collections ...string) *Config {
	return &Config{
		BaseURL:            baseURL,
		APIKey:             apiKey,
		Collections:        collections,
		ConflictResolution: StrategyLastWriteWins,
		SyncInterval:       30 * time.Second,
		MaxQueueSize:       1000,
		RequestTimeout:     15 * time.Second,
	}
}

// Client lifecycle states.
const (
	stateNew = iota
	stateReady
	stateTerminated
)

// Client is the offline sync engine: it queues local mutations durably,
// reconciles them against the paperdb document API, refreshes the local
// mirror and publishes lifecycle events.
type Client struct {
	// HTTP performs all requests. Exposed so applications and tests can
	// install their own transport.
	HTTP *http.Client

	store   Store
	monitor Monitor
	config  *Config
	logger  *slog.Logger
	emitter *emitter

	syncing int32 // busy flag (atomic); exactly one cycle runs at a time

	mu          sync.Mutex // guards state, status and lifecycle handles
	state       int
	status      SyncStatus
	runCtx      context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewClient creates a sync client over the given durable store and network
// monitor. A nil monitor defaults to StaticMonitor (always online,
// polling-only). The client is inert until Init is called.
func NewClient(store Store, monitor Monitor, config *Config) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("config.BaseURL must be provided")
	}
	if len(config.Collections) == 0 {
		return nil, fmt.Errorf("config.Collections must name at least one collection")
	}
	if config.ConflictResolution == "" {
		config.ConflictResolution = StrategyLastWriteWins
	}
	if !config.ConflictResolution.Valid() {
		return nil, fmt.Errorf("unknown conflict resolution strategy %q", config.ConflictResolution)
	}
	if config.ConflictResolution == StrategyMerge && config.OnConflict == nil {
		return nil, fmt.Errorf("config.OnConflict is required for the merge strategy")
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = 30 * time.Second
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 1000
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if monitor == nil {
		monitor = StaticMonitor{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		HTTP:    &http.Client{Timeout: 120 * time.Second},
		store:   store,
		monitor: monitor,
		config:  config,
		logger:  logger,
		emitter: newEmitter(),
	}, nil
}

// metadata keys
const metaLastSyncAt = "last_sync_at"

// Init performs one-time setup: verifies the durable store is usable,
// restores bookkeeping, registers network listeners, starts the periodic
// timer and, if online, performs an initial sync. It fails with
// ErrStorageUnavailable when the hosting environment has no persistent
// storage.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateTerminated:
		c.mu.Unlock()
		return ErrClosed
	case stateReady:
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Probe the store before committing to anything else.
	pending, err := c.store.Count(ctx, PartitionPending)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	lastSyncAt, err := c.loadLastSyncAt(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.state = stateReady
	c.status.PendingChanges = pending
	c.status.LastSyncAt = lastSyncAt
	c.status.IsOffline = !c.monitor.Online()
	c.runCtx = runCtx
	c.cancel = cancel
	c.unsubscribe = c.monitor.Subscribe(c.onNetworkChange)
	c.mu.Unlock()

	go c.run(runCtx)

	if c.monitor.Online() {
		if _, err := c.Sync(ctx); err != nil {
			c.logger.Warn("initial sync failed", "error", err)
		}
	}
	return nil
}

// onNetworkChange reacts to monitor transitions: a restore triggers an
// immediate sync cycle, a loss flips the status and suppresses cycles.
func (c *Client) onNetworkChange(online bool) {
	c.mu.Lock()
	if c.state != stateReady {
		c.mu.Unlock()
		return
	}
	c.status.IsOffline = !online
	runCtx := c.runCtx
	c.mu.Unlock()

	if online {
		c.emitter.emit(Event{Type: EventOnline})
		go func() {
			if _, err := c.Sync(runCtx); err != nil {
				c.logger.Warn("sync after network restore failed", "error", err)
			}
		}()
	} else {
		c.emitter.emit(Event{Type: EventOffline})
	}
}

// run drives the periodic timer until Destroy cancels it.
func (c *Client) run(ctx context.Context) {
	ticker := time.NewTicker(c.config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Sync(ctx); err != nil {
				c.logger.Warn("scheduled sync failed", "error", err)
			}
		}
	}
}

// Sync runs one full reconciliation plus mirror-refresh cycle and reports how
// many changes were applied and how many conflicted. While offline it returns
// immediately without any network call. A trigger that arrives while a cycle
// is already in flight is a no-op, not queued.
//
// Per-change failures never surface here; only a systemic failure (durable
// storage broken, queue undrainable) returns an error, which is also recorded
// in the status and published as a sync:error event.
func (c *Client) Sync(ctx context.Context) (SyncReport, error) {
	c.mu.Lock()
	switch c.state {
	case stateNew:
		c.mu.Unlock()
		return SyncReport{}, ErrNotInitialized
	case stateTerminated:
		c.mu.Unlock()
		return SyncReport{}, ErrClosed
	}
	c.mu.Unlock()

	if !c.monitor.Online() {
		c.setStatus(func(s *SyncStatus) { s.IsOffline = true })
		return SyncReport{}, nil
	}
	if !atomic.CompareAndSwapInt32(&c.syncing, 0, 1) {
		return SyncReport{}, nil
	}
	defer atomic.StoreInt32(&c.syncing, 0)

	c.setStatus(func(s *SyncStatus) {
		s.IsSyncing = true
		s.IsOffline = false
	})
	c.emitter.emit(Event{Type: EventSyncStart})

	report, err := c.reconcile(ctx)
	if err != nil {
		c.setStatus(func(s *SyncStatus) {
			s.IsSyncing = false
			s.LastError = err.Error()
		})
		c.emitter.emit(Event{Type: EventSyncError, Err: err})
		return report, err
	}

	c.refreshCollections(ctx)

	now := time.Now().UTC()
	if err := c.storeLastSyncAt(ctx, now); err != nil {
		c.logger.Warn("failed to persist last sync time", "error", err)
	}
	pending, err := c.store.Count(ctx, PartitionPending)
	if err != nil {
		c.logger.Warn("failed to count pending changes", "error", err)
		pending = -1
	}

	c.setStatus(func(s *SyncStatus) {
		s.IsSyncing = false
		s.LastSyncAt = &now
		s.LastError = ""
		if pending >= 0 {
			s.PendingChanges = pending
		}
	})
	c.emitter.emit(Event{Type: EventSyncComplete, Report: &report})
	return report, nil
}

// Force is an alias for Sync for callers that want an explicit trigger.
func (c *Client) Force(ctx context.Context) (SyncReport, error) {
	return c.Sync(ctx)
}

// Status returns a synchronous snapshot of the engine state.
func (c *Client) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers a lifecycle event listener and returns its unsubscribe
// handle.
func (c *Client) Subscribe(fn func(Event)) func() {
	return c.emitter.subscribe(fn)
}

// Destroy stops the periodic timer and unregisters network listeners. It does
// not cancel an in-flight cycle; it only prevents future cycles from
// starting. The client cannot be reused afterwards.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateReady {
		c.state = stateTerminated
		return
	}
	c.state = stateTerminated
	if c.cancel != nil {
		c.cancel()
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// ensureReady gates API calls on lifecycle state.
func (c *Client) ensureReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateNew:
		return ErrNotInitialized
	case stateTerminated:
		return ErrClosed
	}
	return nil
}

func (c *Client) setStatus(mutate func(*SyncStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mutate(&c.status)
}

func (c *Client) loadLastSyncAt(ctx context.Context) (*time.Time, error) {
	raw, err := c.store.Get(ctx, PartitionMeta, metaLastSyncAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ts time.Time
	if err := ts.UnmarshalJSON(raw); err != nil {
		// Unreadable bookkeeping is not fatal; the next cycle rewrites it.
		c.logger.Warn("ignoring malformed last sync timestamp", "error", err)
		return nil, nil
	}
	return &ts, nil
}

func (c *Client) storeLastSyncAt(ctx context.Context, ts time.Time) error {
	raw, err := ts.MarshalJSON()
	if err != nil {
		return err
	}
	return c.store.Put(ctx, PartitionMeta, Record{Key: metaLastSyncAt, Value: raw})
}
