package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aipen-studio-api/internal/domain/repository"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "aipen_projects_v12"

	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, repository.ErrSnapshotNotFound)

	payload := []byte(`[{"id":"b1","title":"Echoes"}]`)
	require.NoError(t, store.Save(ctx, key, payload))

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// 覆盖写入
	next := []byte(`[]`)
	require.NoError(t, store.Save(ctx, key, next))
	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}
