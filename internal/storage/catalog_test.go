package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := NewCatalog("test", t.TempDir())
	require.NoError(t, cat.Open())
	t.Cleanup(func() { cat.Close() })
	return cat
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCatalog_OpenClose(t *testing.T) {
	cat := NewCatalog("lifecycle", t.TempDir())
	assert.False(t, cat.IsOpen())

	require.NoError(t, cat.Open())
	assert.True(t, cat.IsOpen())

	// Reopening an open catalog is a no-op.
	require.NoError(t, cat.Open())

	require.NoError(t, cat.Close())
	assert.False(t, cat.IsOpen())

	// Data survives a close/reopen cycle.
	require.NoError(t, cat.Open())
	defer cat.Close()
	require.NoError(t, cat.Set("k", raw(t, "v")))
	require.NoError(t, cat.Close())
	require.NoError(t, cat.Open())
	value, ok, err := cat.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `"v"`, string(value))
}

func TestCatalog_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory where the database file should be makes the open fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "broken.db"), 0o755))

	cat := NewCatalog("broken", dir)
	err := cat.Open()
	require.Error(t, err)

	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.False(t, cat.IsOpen())
}

func TestCatalog_ClosedOperations(t *testing.T) {
	cat := NewCatalog("closed", t.TempDir())

	_, _, err := cat.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, cat.Set("k", raw(t, 1)), ErrClosed)
	assert.ErrorIs(t, cat.Remove("k"), ErrClosed)
	assert.ErrorIs(t, cat.Clear(), ErrClosed)
	_, err = cat.Keys()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = cat.ExportAll()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, cat.ReplaceAll(nil), ErrClosed)
}

func TestCatalog_SetGetRemove(t *testing.T) {
	cat := setupCatalog(t)

	_, ok, err := cat.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok, "a missing key is absent, not an error")

	require.NoError(t, cat.Set("greeting", raw(t, "hello")))
	value, ok, err := cat.Get("greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"hello"`, string(value))

	// Repeated set overwrites.
	require.NoError(t, cat.Set("greeting", raw(t, map[string]int{"n": 2})))
	value, ok, err = cat.Get("greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"n":2}`, string(value))

	require.NoError(t, cat.Remove("greeting"))
	_, ok, err = cat.Get("greeting")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing a missing key is a no-op.
	require.NoError(t, cat.Remove("greeting"))
}

func TestCatalog_KeysAndValues(t *testing.T) {
	cat := setupCatalog(t)

	keys, err := cat.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, cat.Set("b", raw(t, 2)))
	require.NoError(t, cat.Set("a", raw(t, 1)))
	require.NoError(t, cat.Set("c", raw(t, 3)))

	keys, err = cat.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	values, err := cat.Values()
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.JSONEq(t, `1`, string(values[0]))
	assert.JSONEq(t, `3`, string(values[2]))
}

func TestCatalog_Clear(t *testing.T) {
	cat := setupCatalog(t)

	require.NoError(t, cat.Set("a", raw(t, 1)))
	require.NoError(t, cat.Set("b", raw(t, 2)))
	require.NoError(t, cat.Clear())

	keys, err := cat.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCatalog_ExportAll(t *testing.T) {
	cat := setupCatalog(t)

	records, err := cat.ExportAll()
	require.NoError(t, err)
	assert.Empty(t, records, "empty catalog exports an empty sequence")

	require.NoError(t, cat.Set("z", raw(t, "last")))
	require.NoError(t, cat.Set("a", raw(t, "first")))

	records, err = cat.ExportAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key)
	assert.Equal(t, "z", records[1].Key)
}

func TestCatalog_ReplaceAll(t *testing.T) {
	cat := setupCatalog(t)

	require.NoError(t, cat.Set("old", raw(t, "gone")))

	require.NoError(t, cat.ReplaceAll([]Record{
		{Key: "n1", Value: raw(t, 1)},
		{Key: "n2", Value: raw(t, 2)},
	}))

	keys, err := cat.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, keys)

	// An empty replacement clears the catalog.
	require.NoError(t, cat.ReplaceAll(nil))
	keys, err = cat.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCatalog_ReplaceAllAtomic(t *testing.T) {
	cat := setupCatalog(t)

	require.NoError(t, cat.Set("keep1", raw(t, "a")))
	require.NoError(t, cat.Set("keep2", raw(t, "b")))

	// Duplicate keys violate the primary key mid-insert, failing the bulk
	// phase after the clear already ran inside the transaction.
	err := cat.ReplaceAll([]Record{
		{Key: "dup", Value: raw(t, 1)},
		{Key: "dup", Value: raw(t, 2)},
	})
	require.Error(t, err)

	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)

	// The failed call rolled back completely: the prior contents survive.
	keys, err := cat.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep1", "keep2"}, keys)
}

func TestCatalog_ConcurrentSetSameKey(t *testing.T) {
	cat := setupCatalog(t)

	values := []json.RawMessage{raw(t, "first"), raw(t, "second")}

	// Two writers racing on the same fresh key must both succeed; the store
	// serializes them and the last one wins.
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("k%03d", i)
		errs := make([]error, len(values))

		var wg sync.WaitGroup
		for j := range values {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				errs[j] = cat.Set(key, values[j])
			}(j)
		}
		wg.Wait()

		for j, err := range errs {
			require.NoError(t, err, "key %s writer %d", key, j)
		}

		value, ok, err := cat.Get(key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, []string{`"first"`, `"second"`}, string(value))
	}
}

func TestCatalog_ConcurrentCloseAndSet(t *testing.T) {
	cat := setupCatalog(t)

	value := raw(t, "v")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			// A write either lands on an open handle or observes the
			// closed state; it never tears mid-operation.
			if err := cat.Set("k", value); err != nil {
				assert.ErrorIs(t, err, ErrClosed)
			}
		}
	}()

	for i := 0; i < 25; i++ {
		require.NoError(t, cat.Close())
		require.NoError(t, cat.Open())
	}
	<-done

	require.NoError(t, cat.Open())
	got, ok, err := cat.Get("k")
	require.NoError(t, err)
	if ok {
		assert.JSONEq(t, `"v"`, string(got))
	}
}
