package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "docs/readme.md", 1000, 42, 1))

	id, err := store.GetContentId(ctx, "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, ContentId(42), id)

	path, err := store.GetPathFromContentId(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, RelativePath("docs/readme.md"), path)

	mtime, err := store.GetLastModifiedMs(ctx, "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), mtime)

	rev, err := store.GetRevisionId(ctx, "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, RevisionId(1), rev)
}

func TestStore_NotIndexed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetContentId(ctx, "missing.txt")
	var notIndexed *NotIndexedError
	require.ErrorAs(t, err, &notIndexed)
	assert.Equal(t, RelativePath("missing.txt"), notIndexed.Path)

	_, err = store.GetPathFromContentId(ctx, 999)
	require.ErrorAs(t, err, &notIndexed)
	assert.Equal(t, ContentId(999), notIndexed.Id)

	_, err = store.GetLastModifiedMs(ctx, "missing.txt")
	require.ErrorAs(t, err, &notIndexed)

	_, err = store.GetRevisionId(ctx, "missing.txt")
	require.ErrorAs(t, err, &notIndexed)
}

func TestStore_RelativePathIsKnown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	known, err := store.RelativePathIsKnown(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))

	known, err = store.RelativePathIsKnown(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestStore_ContentIdIsKnown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	known, err := store.ContentIdIsKnown(ctx, 7)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 7, 1))

	known, err = store.ContentIdIsKnown(ctx, 7)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestStore_UpdateRelativePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "old/name.txt", 1, 5, 1))
	require.NoError(t, store.UpdateRelativePath(ctx, 5, "new/name.txt"))

	path, err := store.GetPathFromContentId(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, RelativePath("new/name.txt"), path)

	_, err = store.GetContentId(ctx, "old/name.txt")
	var notIndexed *NotIndexedError
	require.ErrorAs(t, err, &notIndexed)
}

func TestStore_UpdateRevisionId(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))
	require.NoError(t, store.UpdateRevisionId(ctx, "a.txt", 9))

	rev, err := store.GetRevisionId(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, RevisionId(9), rev)
}

func TestStore_UpdateLastModifiedTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))
	require.NoError(t, store.UpdateLastModifiedTimestamp(ctx, "a.txt", 5000))

	mtime, err := store.GetLastModifiedMs(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), mtime)
}

func TestStore_DeleteFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))
	require.NoError(t, store.DeleteFile(ctx, 1))

	_, err := store.GetContentId(ctx, "a.txt")
	var notIndexed *NotIndexedError
	require.ErrorAs(t, err, &notIndexed)
}

func TestStore_GetAllRelativePaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	paths, err := store.GetAllRelativePaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))
	require.NoError(t, store.InsertNewFile(ctx, "b.txt", 1, 2, 1))
	require.NoError(t, store.InsertNewFile(ctx, "dir/c.txt", 1, 3, 1))

	paths, err = store.GetAllRelativePaths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []RelativePath{"a.txt", "b.txt", "dir/c.txt"}, paths)
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertNewFile(ctx, "a.txt", 1, 1, 1))
	require.NoError(t, runMigrations(ctx, store.db, testLogger(t)))

	id, err := store.GetContentId(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, ContentId(1), id)
}
