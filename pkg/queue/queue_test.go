package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeueReturnsOnlyDueItems(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	q := New[string]()
	q.now = func() time.Time { return now }

	q.Enqueue(&Item[string]{ID: "later", Value: "b", RetryAt: now.Add(time.Minute)})
	q.Enqueue(&Item[string]{ID: "due", Value: "a", RetryAt: now})
	assert.Equal(t, 2, q.Size())

	item := q.Dequeue()
	require.NotNil(t, item)
	assert.Equal(t, "due", item.ID)
	assert.Equal(t, "a", item.Value)

	assert.Nil(t, q.Dequeue())
	assert.Equal(t, 1, q.Size())

	now = now.Add(2 * time.Minute)
	item = q.Dequeue()
	require.NotNil(t, item)
	assert.Equal(t, "later", item.ID)
	assert.Equal(t, 0, q.Size())
}

func TestSnapshotIsACopy(t *testing.T) {
	q := New[int]()
	q.Enqueue(&Item[int]{ID: "1", Value: 1})

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 1)
	snapshot[0] = nil

	assert.NotNil(t, q.Snapshot()[0])
}
