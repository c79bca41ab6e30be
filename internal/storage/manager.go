package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager is the public persistence surface consumed by the rest of the
// application. It is an explicitly constructed, long-lived object with a
// single-instance-per-process lifecycle: build it once in the entrypoint and
// pass the handle to whichever component needs persistence.
//
// Initialization is asynchronous. Every operation first awaits the readiness
// gate (bounded by the caller's context), so early calls queue rather than
// fail. Unqualified record operations act on whatever catalog is current.
type Manager struct {
	registry *Registry
	engine   *Engine
	sync     *Synchronizer

	startOnce sync.Once
	ready     chan struct{}
	readyErr  error
}

// NewManager builds an unstarted manager whose catalogs live in dir. The
// defaultName catalog is opened implicitly during initialization.
func NewManager(dir, defaultName string) *Manager {
	registry := NewRegistry(dir, defaultName)
	return &Manager{
		registry: registry,
		engine:   NewEngine(registry),
		sync:     NewSynchronizer(registry),
		ready:    make(chan struct{}),
	}
}

// Start launches the one-shot asynchronous initialization: open the default
// catalog, enumerate catalogs persisted by previous sessions, apply the
// stored default preference, then resolve the readiness gate.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go func() {
			m.readyErr = m.initialize()
			close(m.ready)
		}()
	})
}

func (m *Manager) initialize() error {
	if err := os.MkdirAll(m.registry.Dir(), 0o755); err != nil {
		return &IOError{Op: "create data directory", Catalog: "", Err: err}
	}
	if err := m.registry.Switch(m.registry.DefaultName()); err != nil {
		return err
	}
	if err := m.registry.Discover(); err != nil {
		return err
	}
	m.sync.ApplyStoredDefault()
	log.Info().
		Str("current", m.registry.CurrentName()).
		Strs("catalogs", m.registry.Names()).
		Msg("storage manager ready")
	return nil
}

// WhenReady blocks until initialization has finished or ctx is done. It
// returns the initialization error, if any; consumers must not issue
// operations before it resolves.
func (m *Manager) WhenReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return m.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Registry exposes the underlying registry for collaborators that operate on
// catalogs directly (the snapshot scheduler, tests).
func (m *Manager) Registry() *Registry { return m.registry }

// CreateDatabase creates (or reopens) the named catalog. Idempotent.
func (m *Manager) CreateDatabase(ctx context.Context, name string) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.registry.Create(name)
}

// SwitchDatabase makes the named catalog current, creating it if needed.
func (m *Manager) SwitchDatabase(ctx context.Context, name string) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.registry.Switch(name)
}

// DeleteDatabase drops the named catalog and its persistent storage. When
// the current catalog is deleted a fallback is selected deterministically.
func (m *Manager) DeleteDatabase(ctx context.Context, name string) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.registry.Delete(name)
}

// CurrentDatabaseName returns the name of the current catalog.
func (m *Manager) CurrentDatabaseName(ctx context.Context) (string, error) {
	if err := m.WhenReady(ctx); err != nil {
		return "", err
	}
	return m.registry.CurrentName(), nil
}

// InitializedDatabaseNames returns a snapshot of all tracked catalog names.
func (m *Manager) InitializedDatabaseNames(ctx context.Context) ([]string, error) {
	if err := m.WhenReady(ctx); err != nil {
		return nil, err
	}
	return m.registry.Names(), nil
}

// SetDefaultDatabase propagates name as the preferred default catalog into
// every tracked catalog and switches to it. The propagation result reports
// per-catalog outcomes of the best-effort fan-out.
func (m *Manager) SetDefaultDatabase(ctx context.Context, name string) (PropagationResult, error) {
	if err := m.WhenReady(ctx); err != nil {
		return PropagationResult{Target: name}, err
	}
	return m.sync.SetDefaultForAll(name)
}

// SetItem stores value under key in the current catalog. The value may be
// anything JSON-serializable; its shape is never inspected.
func (m *Manager) SetItem(ctx context.Context, key string, value any) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return validationErrorf("value for key %q is not serializable: %v", key, err)
	}
	return m.currentCatalog().Set(key, raw)
}

// GetItem returns the raw value stored under key in the current catalog.
// A missing key is reported as absent, not as an error.
func (m *Manager) GetItem(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := m.WhenReady(ctx); err != nil {
		return nil, false, err
	}
	return m.currentCatalog().Get(key)
}

// RemoveItem deletes the record stored under key in the current catalog.
func (m *Manager) RemoveItem(ctx context.Context, key string) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.currentCatalog().Remove(key)
}

// ClearAll deletes every record in the current catalog.
func (m *Manager) ClearAll(ctx context.Context) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.currentCatalog().Clear()
}

// GetAllKeys returns every key in the current catalog, ordered.
func (m *Manager) GetAllKeys(ctx context.Context) ([]string, error) {
	if err := m.WhenReady(ctx); err != nil {
		return nil, err
	}
	return m.currentCatalog().Keys()
}

// GetAllValues returns every value in the current catalog, in key order.
func (m *Manager) GetAllValues(ctx context.Context) ([]json.RawMessage, error) {
	if err := m.WhenReady(ctx); err != nil {
		return nil, err
	}
	return m.currentCatalog().Values()
}

// BackupDatabase exports the current catalog as an ordered record sequence.
func (m *Manager) BackupDatabase(ctx context.Context) ([]Record, error) {
	if err := m.WhenReady(ctx); err != nil {
		return nil, err
	}
	return m.engine.Backup("")
}

// RestoreDatabase atomically replaces the current catalog's contents.
func (m *Manager) RestoreDatabase(ctx context.Context, records []Record) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.engine.Restore("", records)
}

// RestoreDatabaseJSON parses a raw backup payload and restores it into the
// current catalog.
func (m *Manager) RestoreDatabaseJSON(ctx context.Context, data []byte) error {
	if err := m.WhenReady(ctx); err != nil {
		return err
	}
	return m.engine.RestoreJSON("", data)
}

// currentCatalog is only called after the readiness gate has resolved, at
// which point the registry invariant guarantees a live current catalog.
func (m *Manager) currentCatalog() *Catalog {
	return m.registry.Current()
}

// GetItemAs decodes the value stored under key in the current catalog into
// T. Absence is reported via the second return value, with T left zero.
func GetItemAs[T any](ctx context.Context, m *Manager, key string) (T, bool, error) {
	var out T
	raw, ok, err := m.GetItem(ctx, key)
	if err != nil || !ok {
		return out, ok, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, true, validationErrorf("value for key %q cannot decode into %T: %v", key, out, err)
	}
	return out, true, nil
}
