package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/spatial-anchors/internal/tracking"
)

func anchorAt(id string, x float64) tracking.Anchor {
	return tracking.Anchor{ID: id, Pose: tracking.NewPose(x, 0, -1), Persistent: true}
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "anchors.yaml")
	store := NewFileStore(path)

	anchors, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, anchors, "a store that was never written is empty")

	require.NoError(t, store.Put(ctx, anchorAt("a1", 1)))
	require.NoError(t, store.Put(ctx, anchorAt("a2", 2)))
	require.NoError(t, store.Put(ctx, anchorAt("a1", 3)))

	// A second store on the same file sees the writes of the first
	other := NewFileStore(path)
	anchors, err = other.Load(ctx)
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	assert.Equal(t, "a1", anchors[0].ID)
	assert.InDelta(t, 3.0, anchors[0].Pose.Position.X, 1e-9)
	assert.Equal(t, "a2", anchors[1].ID)

	require.NoError(t, other.Remove(ctx, "a1"))
	require.NoError(t, other.Remove(ctx, "unknown"))

	anchors, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []tracking.Anchor{anchorAt("a2", 2)}, anchors)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed into place")
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anchors: [unclosed"), 0600))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse anchor store")
}

func TestFileStore_WaitsForLockHolder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	path := filepath.Join(t.TempDir(), "anchors.yaml")
	holder := NewFileStore(path).(*fileStore)
	require.NoError(t, holder.lock.Lock())
	defer func() { _ = holder.lock.Unlock() }()

	err := NewFileStore(path).Put(ctx, anchorAt("a1", 0))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore(anchorAt("a1", 1))
	require.NoError(t, store.Put(ctx, anchorAt("a2", 2)))
	require.NoError(t, store.Put(ctx, anchorAt("a1", 5)))
	require.NoError(t, store.Remove(ctx, "a2"))
	require.NoError(t, store.Remove(ctx, "a2"))

	anchors, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []tracking.Anchor{anchorAt("a1", 5)}, anchors)
}
