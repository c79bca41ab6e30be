// Package scheduler runs periodic background jobs. The snapshot scheduler
// exports every catalog to timestamped JSON files on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mkazlouski/sparkpad/internal/config"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

// SnapshotScheduler periodically writes a backup of every tracked catalog
// into the snapshot directory.
type SnapshotScheduler struct {
	manager *storage.Manager
	cfg     config.Snapshots

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// NewSnapshotScheduler creates a new scheduler instance.
func NewSnapshotScheduler(manager *storage.Manager, cfg config.Snapshots) *SnapshotScheduler {
	return &SnapshotScheduler{
		manager: manager,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if snapshots are enabled. Shutdown goes through
// the explicit Stop call.
func (s *SnapshotScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Info().Msg("snapshot scheduler: disabled")
		return nil
	}

	if s.cfg.Dir == "" {
		log.Info().Msg("snapshot scheduler: snapshot directory not configured, skipping")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runSnapshot(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduling snapshot job with %q: %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Info().Str("schedule", s.cfg.Schedule).Str("dir", s.cfg.Dir).Msg("snapshot scheduler: started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false

	log.Info().Msg("snapshot scheduler: stopped")
}

// RunNow triggers an immediate snapshot and reports its outcome.
func (s *SnapshotScheduler) RunNow(ctx context.Context) error {
	return s.SnapshotAll(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *SnapshotScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *SnapshotScheduler) runSnapshot(ctx context.Context) {
	if err := s.SnapshotAll(ctx); err != nil {
		log.Error().Err(err).Msg("snapshot run failed")
	}
}

// SnapshotAll exports every tracked catalog to a timestamped JSON file in the
// snapshot directory. Catalogs keep serving while the export runs.
func (s *SnapshotScheduler) SnapshotAll(ctx context.Context) error {
	if err := s.manager.WhenReady(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	registry := s.manager.Registry()

	var firstErr error
	for _, name := range registry.Names() {
		if err := s.snapshotOne(registry, name, stamp); err != nil {
			log.Error().Err(err).Str("catalog", name).Msg("snapshot export failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug().Str("catalog", name).Msg("snapshot written")
	}
	return firstErr
}

func (s *SnapshotScheduler) snapshotOne(registry *storage.Registry, name, stamp string) error {
	cat, err := registry.Resolve(name)
	if err != nil {
		return err
	}
	records, err := cat.ExportAll()
	if err != nil {
		return err
	}
	data, err := storage.MarshalBackup(records)
	if err != nil {
		return err
	}
	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("%s-%s.json", name, stamp))
	return os.WriteFile(path, data, 0o644)
}
