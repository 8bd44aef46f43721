package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := NewSQLiteRepo("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(repo.Disconnect)
	return repo
}

func TestSaveAndResolveMapping(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveMapping(ctx, "ref-1", "req-1"))

	id, ok, err := repo.RequisitionIDByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "req-1", id)
}

func TestResolveUnknownReference(t *testing.T) {
	repo := newRepo(t)

	_, ok, err := repo.RequisitionIDByReference(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMappingIsAppendOnly(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveMapping(ctx, "ref-1", "req-1"))
	// Re-saving the same reference must not rebind it.
	require.NoError(t, repo.SaveMapping(ctx, "ref-1", "req-other"))

	id, ok, err := repo.RequisitionIDByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "req-1", id)
}

func TestSaveMappingRejectsEmptyIDs(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.Error(t, repo.SaveMapping(ctx, "", "req-1"))
	require.Error(t, repo.SaveMapping(ctx, "ref-1", ""))
}

func TestAnyRequisitionID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, ok, err := repo.AnyRequisitionID(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SaveMapping(ctx, "ref-1", "req-1"))
	require.NoError(t, repo.SaveMapping(ctx, "ref-2", "req-2"))

	id, ok, err := repo.AnyRequisitionID(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, []string{"req-1", "req-2"}, id)
}

func TestHealth(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Health())
}

func TestMappingSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepo(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveMapping(ctx, "ref-1", "req-1"))
	repo.Disconnect()

	reopened, err := NewSQLiteRepo(path)
	require.NoError(t, err)
	defer reopened.Disconnect()

	id, ok, err := reopened.RequisitionIDByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "req-1", id)
}
