package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestKV_SetGetRemove(t *testing.T) {
	t.Parallel()
	database := openTestDB(t)

	v, err := database.Get("accessToken")
	require.NoError(t, err)
	assert.Empty(t, v, "absent key reads as empty")

	require.NoError(t, database.Set("accessToken", "a1"))
	require.NoError(t, database.Set("accessToken", "a2"))

	v, err = database.Get("accessToken")
	require.NoError(t, err)
	assert.Equal(t, "a2", v)

	keys, err := database.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"accessToken"}, keys)

	require.NoError(t, database.Remove("accessToken"))
	require.NoError(t, database.Remove("accessToken"), "second remove is a no-op")

	keys, err = database.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "persist.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("user", `{"id":"u1"}`))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	v, err := second.Get("user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, v)
}

func TestSettings(t *testing.T) {
	t.Parallel()
	database := openTestDB(t)

	v, err := database.GetSetting("last_project_id")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, database.SetSetting("last_project_id", "p1"))
	v, err = database.GetSetting("last_project_id")
	require.NoError(t, err)
	assert.Equal(t, "p1", v)
}

func TestAuditLog(t *testing.T) {
	t.Parallel()
	database := openTestDB(t)

	e, err := database.RecordAudit("p1", "auto-complete", "3/3 tasks completed")
	require.NoError(t, err)
	assert.Equal(t, "p1", e.ProjectID)
	assert.NotZero(t, e.ID)

	_, err = database.RecordAudit("p2", "mark-completed", "")
	require.NoError(t, err)

	entries, err := database.ListAudit("p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "auto-complete", entries[0].Action)
	assert.Equal(t, "3/3 tasks completed", entries[0].Detail)
}
