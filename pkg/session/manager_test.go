package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestGetOrCreateNewSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess, err := m.GetOrCreate(ctx, "NutriSync", "12345")
	require.NoError(t, err)
	assert.Equal(t, "session_12345", sess.ID)
	assert.Equal(t, "NutriSync", sess.AppName)
	assert.Equal(t, "12345", sess.UserID)
	assert.Empty(t, sess.State)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestGetOrCreateIsStable(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, "NutriSync", "12345")
	require.NoError(t, err)

	_, err = m.ApplyDelta(ctx, "NutriSync", "12345", map[string]any{"user_profile": "set"})
	require.NoError(t, err)

	second, err := m.GetOrCreate(ctx, "NutriSync", "12345")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "set", second.State["user_profile"])
}

func TestApplyDeltaMergesAndDeletes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess, err := m.ApplyDelta(ctx, "NutriSync", "u1", map[string]any{
		"a": "1",
		"b": "2",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", sess.State["a"])

	sess, err = m.ApplyDelta(ctx, "NutriSync", "u1", map[string]any{
		"b": nil,
		"c": "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", sess.State["a"])
	assert.NotContains(t, sess.State, "b")
	assert.Equal(t, "3", sess.State["c"])
}

func TestApplyDeltaPersistsAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m1, err := New(dir)
	require.NoError(t, err)
	_, err = m1.ApplyDelta(ctx, "NutriSync", "u1", map[string]any{"daily_totals": "{}"})
	require.NoError(t, err)
	require.NoError(t, m1.Close())

	m2, err := New(dir)
	require.NoError(t, err)
	sess, err := m2.Get(ctx, "NutriSync", "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "{}", sess.State["daily_totals"])
}

func TestGetMissingSessionReturnsNil(t *testing.T) {
	m := newTestManager(t)

	sess, err := m.Get(context.Background(), "NutriSync", "nobody")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestKeyValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "NutriSync", "../evil")
	assert.Error(t, err)

	_, err = m.GetOrCreate(ctx, "NutriSync", "a/b")
	assert.Error(t, err)

	_, err = m.GetOrCreate(ctx, "", "")
	assert.Error(t, err)
}

func TestConcurrentDeltasSameUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := m.ApplyDelta(ctx, "NutriSync", "u1", map[string]any{key: key})
			assert.NoError(t, err)
		}(k)
	}
	wg.Wait()

	sess, err := m.Get(ctx, "NutriSync", "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	for _, k := range keys {
		assert.Equal(t, k, sess.State[k])
	}
}

func TestDeleteSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "NutriSync", "u1")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "NutriSync", "u1"))

	sess, err := m.Get(ctx, "NutriSync", "u1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Deleting again is a no-op.
	require.NoError(t, m.Delete(ctx, "NutriSync", "u1"))
}

func TestList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "NutriSync", "u1")
	require.NoError(t, err)
	_, err = m.GetOrCreate(ctx, "NutriSync", "u2")
	require.NoError(t, err)

	keys, err := m.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NutriSync_session_u1", "NutriSync_session_u2"}, keys)
}

func TestCleanupRemovesStaleSessions(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.GetOrCreate(ctx, "NutriSync", "stale")
	require.NoError(t, err)
	_, err = m.GetOrCreate(ctx, "NutriSync", "fresh")
	require.NoError(t, err)

	stalePath := filepath.Join(dir, "NutriSync_session_stale.json")
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, old, old))

	c := NewCleanup(m, 24*time.Hour)
	removed, err := c.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	keys, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"NutriSync_session_fresh"}, keys)
}
