package library_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devwell/backend/features/library"
	"devwell/backend/internal/testutils"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := testutils.NewIntegrationSuite(t)
	s.SetupPostgres()
	defer s.Teardown()

	ctx := context.Background()
	idx := library.NewIndex(library.NewPostgresRepo(s.DB))
	require.NoError(t, idx.Load(ctx))

	require.NoError(t, idx.Add(ctx, newLinkItem("b")))
	require.NoError(t, idx.Add(ctx, newLinkItem("a")))
	require.NoError(t, idx.UpdateStatus(ctx, "b", library.StatusReady, readyUpdate("one", "two")))
	require.NoError(t, idx.UpdateStatus(ctx, "a", library.StatusError, library.Update{ErrorDetail: "unsupported"}))

	reloaded := library.NewIndex(library.NewPostgresRepo(s.DB))
	require.NoError(t, reloaded.Load(ctx))

	list := reloaded.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, library.StatusReady, list[0].Status)
	assert.Equal(t, []string{"one", "two"}, list[0].Chunks)
	assert.Equal(t, "unsupported", list[1].ErrorDetail)

	docs := reloaded.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, [][]float32{{1, 0, 0}, {1, 0, 0}}, docs[0].Embeddings)

	require.NoError(t, reloaded.Delete(ctx, "b"))
	again := library.NewIndex(library.NewPostgresRepo(s.DB))
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, 1, again.Len())
}
