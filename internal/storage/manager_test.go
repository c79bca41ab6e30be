package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (context.Context, *Manager) {
	t.Helper()
	return setupManagerIn(t, t.TempDir())
}

func setupManagerIn(t *testing.T, dir string) (context.Context, *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	m := NewManager(dir, "default")
	m.Start()
	require.NoError(t, m.WhenReady(ctx))
	return ctx, m
}

func TestManager_ReadinessGate(t *testing.T) {
	t.Run("operations issued before readiness queue and then run", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		m := NewManager(t.TempDir(), "default")
		done := make(chan error, 1)
		go func() {
			done <- m.SetItem(ctx, "queued", "value")
		}()

		m.Start()
		require.NoError(t, <-done)

		value, ok, err := m.GetItem(ctx, "queued")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `"value"`, string(value))
	})

	t.Run("an unstarted manager blocks until the context expires", func(t *testing.T) {
		m := NewManager(t.TempDir(), "default")

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := m.WhenReady(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("start is one-shot", func(t *testing.T) {
		ctx, m := setupManager(t)
		m.Start()
		m.Start()
		require.NoError(t, m.WhenReady(ctx))
	})
}

func TestManager_ExampleScenario(t *testing.T) {
	ctx, m := setupManager(t)

	require.NoError(t, m.SetItem(ctx, "u1", "hello"))

	require.NoError(t, m.SwitchDatabase(ctx, "work"))
	require.NoError(t, m.SetItem(ctx, "u2", "world"))

	backup, err := m.BackupDatabase(ctx)
	require.NoError(t, err)
	require.Len(t, backup, 1)
	assert.Equal(t, "u2", backup[0].Key)
	assert.JSONEq(t, `"world"`, string(backup[0].Value))

	require.NoError(t, m.SwitchDatabase(ctx, "default"))

	_, ok, err := m.GetItem(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok, "work's records must not leak into default")

	value, ok, err := m.GetItem(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"hello"`, string(value))
}

func TestManager_PreferenceSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	ctx, first := setupManagerIn(t, dir)
	require.NoError(t, first.CreateDatabase(ctx, "b"))

	result, err := first.SetDefaultDatabase(ctx, "b")
	require.NoError(t, err)
	assert.True(t, result.FullyPropagated())

	// A cold start over the same directory lands on the stored default.
	ctx2, second := setupManagerIn(t, dir)
	current, err := second.CurrentDatabaseName(ctx2)
	require.NoError(t, err)
	assert.Equal(t, "b", current)
}

func TestManager_RecordOperations(t *testing.T) {
	ctx, m := setupManager(t)

	require.NoError(t, m.SetItem(ctx, "b", 2))
	require.NoError(t, m.SetItem(ctx, "a", 1))

	keys, err := m.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	values, err := m.GetAllValues(ctx)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.JSONEq(t, `1`, string(values[0]))

	require.NoError(t, m.RemoveItem(ctx, "a"))
	_, ok, err := m.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.ClearAll(ctx))
	keys, err = m.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestManager_SetItemRejectsUnserializable(t *testing.T) {
	ctx, m := setupManager(t)

	var vErr *ValidationError
	err := m.SetItem(ctx, "bad", make(chan int))
	assert.ErrorAs(t, err, &vErr)
}

func TestManager_RestoreDatabaseJSON(t *testing.T) {
	ctx, m := setupManager(t)

	require.NoError(t, m.SetItem(ctx, "old", "gone"))

	payload := []byte(`[{"key": "restored", "value": {"n": 1}}]`)
	require.NoError(t, m.RestoreDatabaseJSON(ctx, payload))

	keys, err := m.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"restored"}, keys)

	// A malformed payload is rejected before anything is touched.
	var vErr *ValidationError
	err = m.RestoreDatabaseJSON(ctx, []byte(`"not-an-array"`))
	assert.ErrorAs(t, err, &vErr)

	keys, err = m.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"restored"}, keys)
}

func TestManager_DeleteDatabaseFallback(t *testing.T) {
	ctx, m := setupManager(t)

	require.NoError(t, m.SwitchDatabase(ctx, "doomed"))
	require.NoError(t, m.DeleteDatabase(ctx, "doomed"))

	current, err := m.CurrentDatabaseName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", current)

	names, err := m.InitializedDatabaseNames(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "doomed")
}

func TestGetItemAs(t *testing.T) {
	ctx, m := setupManager(t)

	type note struct {
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}

	require.NoError(t, m.SetItem(ctx, "note", note{Title: "ship it", Done: true}))

	got, ok, err := GetItemAs[note](ctx, m, "note")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, note{Title: "ship it", Done: true}, got)

	_, ok, err = GetItemAs[note](ctx, m, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	// Shape mismatches surface as validation failures.
	require.NoError(t, m.SetItem(ctx, "scalar", 42))
	var vErr *ValidationError
	_, _, err = GetItemAs[note](ctx, m, "scalar")
	assert.ErrorAs(t, err, &vErr)
}
