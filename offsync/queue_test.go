package offsync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueChangeWriteAhead(t *testing.T) {
	client, _ := newTestClient(t, newFakeAPI(), NewSwitchMonitor(false), nil)
	initTestClient(t, client)
	ctx := context.Background()

	require.NoError(t, client.QueueChange(ctx, Change{
		Collection: "notes",
		Operation:  OpUpdate,
		DocumentID: "d1",
		Data:       Document{"title": "hello"},
	}))

	pending, err := client.GetPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotEmpty(t, pending[0].ID)
	require.False(t, pending[0].CreatedAt.IsZero())
	require.Equal(t, "notes", pending[0].Collection)
	require.Equal(t, OpUpdate, pending[0].Operation)
	require.Equal(t, "d1", pending[0].DocumentID)

	require.Equal(t, 1, client.Status().PendingChanges)
}

func TestQueueChangeValidation(t *testing.T) {
	client, _ := newTestClient(t, newFakeAPI(), NewSwitchMonitor(false), nil)
	initTestClient(t, client)
	ctx := context.Background()

	err := client.QueueChange(ctx, Change{Collection: "notes", Operation: "upsert"})
	require.Error(t, err)

	err = client.QueueChange(ctx, Change{Collection: "notes", Operation: OpUpdate, Data: Document{}})
	require.ErrorIs(t, err, ErrMissingDocumentID)

	err = client.QueueChange(ctx, Change{Collection: "notes", Operation: OpDelete})
	require.ErrorIs(t, err, ErrMissingDocumentID)

	// Inserts carry no document id; the server assigns one.
	err = client.QueueChange(ctx, Change{Collection: "notes", Operation: OpInsert, Data: Document{"title": "x"}})
	require.NoError(t, err)
}

func TestQueueChangeCapacity(t *testing.T) {
	client, _ := newTestClient(t, newFakeAPI(), NewSwitchMonitor(false), func(cfg *Config) {
		cfg.MaxQueueSize = 3
	})
	initTestClient(t, client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, client.QueueChange(ctx, Change{
			Collection: "notes",
			Operation:  OpUpdate,
			DocumentID: fmt.Sprintf("d%d", i),
			Data:       Document{"n": i},
		}))
	}

	err := client.QueueChange(ctx, Change{
		Collection: "notes",
		Operation:  OpUpdate,
		DocumentID: "overflow",
	})
	require.ErrorIs(t, err, ErrQueueFull)

	pending, err := client.GetPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3, "queue length must never exceed the configured maximum")
}

func TestQueueChangeLifecycleGates(t *testing.T) {
	client, _ := newTestClient(t, newFakeAPI(), NewSwitchMonitor(false), nil)
	ctx := context.Background()

	err := client.QueueChange(ctx, Change{Collection: "notes", Operation: OpInsert})
	require.ErrorIs(t, err, ErrNotInitialized)

	initTestClient(t, client)
	client.Destroy()

	err = client.QueueChange(ctx, Change{Collection: "notes", Operation: OpInsert})
	require.ErrorIs(t, err, ErrClosed)
}
