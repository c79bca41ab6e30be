package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazlouski/sparkpad/internal/config"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

func setupSnapshots(t *testing.T) (context.Context, *storage.Manager, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	m := storage.NewManager(t.TempDir(), "default")
	m.Start()
	require.NoError(t, m.WhenReady(ctx))
	return ctx, m, t.TempDir()
}

func TestSnapshotScheduler_SnapshotAll(t *testing.T) {
	ctx, m, dir := setupSnapshots(t)

	require.NoError(t, m.SetItem(ctx, "k", "v"))
	require.NoError(t, m.SwitchDatabase(ctx, "work"))
	require.NoError(t, m.SetItem(ctx, "w", 1))

	s := NewSnapshotScheduler(m, config.Snapshots{Enabled: true, Schedule: "0 * * * *", Dir: dir})
	require.NoError(t, s.SnapshotAll(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		_, err = storage.ParseBackup(data)
		require.NoError(t, err, "snapshot %s is not a valid backup", entry.Name())
	}

	assert.True(t, hasPrefix(names, "default-"), "missing default snapshot: %v", names)
	assert.True(t, hasPrefix(names, "work-"), "missing work snapshot: %v", names)
}

func TestSnapshotScheduler_StartDisabled(t *testing.T) {
	_, m, dir := setupSnapshots(t)

	s := NewSnapshotScheduler(m, config.Snapshots{Enabled: false, Dir: dir})
	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	_, m, dir := setupSnapshots(t)

	s := NewSnapshotScheduler(m, config.Snapshots{Enabled: true, Schedule: "0 * * * *", Dir: dir})
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	// Start is idempotent while running.
	require.NoError(t, s.Start())

	s.Stop()
	assert.False(t, s.IsRunning())

	// Stop is idempotent once stopped.
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSnapshotScheduler_InvalidSchedule(t *testing.T) {
	_, m, dir := setupSnapshots(t)

	s := NewSnapshotScheduler(m, config.Snapshots{Enabled: true, Schedule: "not-a-schedule", Dir: dir})
	assert.Error(t, s.Start())
}

func hasPrefix(names []string, prefix string) bool {
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
