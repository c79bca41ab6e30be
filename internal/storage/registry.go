package storage

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns every catalog handle and tracks which catalog is current.
// It is the only place a Catalog is created or dropped.
//
// The mutex guards the map, the insertion-order slice and the current name.
// Switches reassign the current name as their final step while holding the
// lock, so concurrent switches serialize and the last one wins.
type Registry struct {
	mu          sync.Mutex
	dir         string
	defaultName string
	catalogs    map[string]*Catalog
	order       []string
	current     string
}

// NewRegistry creates an empty registry whose catalogs live in dir. The
// defaultName catalog is created implicitly on startup and re-created as the
// fallback when the last catalog is deleted.
func NewRegistry(dir, defaultName string) *Registry {
	return &Registry{
		dir:         dir,
		defaultName: defaultName,
		catalogs:    make(map[string]*Catalog),
	}
}

// Dir returns the directory holding the catalog database files.
func (r *Registry) Dir() string { return r.dir }

// DefaultName returns the implicit default catalog name.
func (r *Registry) DefaultName() string { return r.defaultName }

// Create opens (or reopens) the named catalog and registers it. Creation is
// idempotent: an already-open catalog is a no-op, a tracked-but-closed
// catalog is reopened, and an untracked one is constructed and opened before
// it is registered, so a failed open leaves the registry unchanged.
func (r *Registry) Create(name string) error {
	if err := validateCatalogName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.ensureLocked(name)
	return err
}

// Switch makes the named catalog current, creating and opening it first if
// needed. The previously-current catalog stays open so a rapid switch-back
// does not re-pay the open cost.
func (r *Registry) Switch(name string) error {
	if err := validateCatalogName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == r.current {
		return nil
	}
	if _, err := r.ensureLocked(name); err != nil {
		return err
	}
	r.current = name
	return nil
}

// Delete closes the named catalog, removes its database files and drops it
// from the registry. Deleting a name that was never created is a no-op. If
// the deleted catalog was current, a fallback is selected deterministically:
// the first remaining catalog by insertion order, else a re-created default
// catalog. A failed fallback is surfaced as an error since the registry must
// never be left without a valid current catalog.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat, ok := r.catalogs[name]
	if !ok {
		return nil
	}

	if err := cat.Close(); err != nil {
		log.Warn().Err(err).Str("catalog", name).Msg("closing catalog before delete")
	}
	if err := removeDatabaseFiles(cat.Path()); err != nil {
		return &IOError{Op: "delete catalog", Catalog: name, Err: err}
	}

	delete(r.catalogs, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.current != name {
		return nil
	}

	fallback := r.defaultName
	if len(r.order) > 0 {
		fallback = r.order[0]
	}
	if _, err := r.ensureLocked(fallback); err != nil {
		return fmt.Errorf("selecting fallback catalog %q after deleting %q: %w", fallback, name, err)
	}
	r.current = fallback
	log.Info().Str("deleted", name).Str("current", fallback).Msg("current catalog replaced by fallback")
	return nil
}

// Names returns a snapshot of the tracked catalog names in insertion order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// CurrentName returns the name of the current catalog.
func (r *Registry) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Current returns the current catalog handle, or nil before the first switch.
func (r *Registry) Current() *Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return nil
	}
	return r.catalogs[r.current]
}

// Get returns the tracked handle for name.
func (r *Registry) Get(name string) (*Catalog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat, ok := r.catalogs[name]
	return cat, ok
}

// Resolve returns an open handle for name, creating the catalog if needed.
// The current catalog is not changed.
func (r *Registry) Resolve(name string) (*Catalog, error) {
	if err := validateCatalogName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(name)
}

// Discover merges catalogs persisted by a previous session into the registry.
// Database files already tracked are left alone; new ones are registered as
// closed handles and opened lazily on first use.
func (r *Registry) Discover() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return &IOError{Op: "enumerate catalogs", Catalog: "", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".db")
		if validateCatalogName(name) != nil {
			continue
		}
		if _, ok := r.catalogs[name]; ok {
			continue
		}
		r.catalogs[name] = NewCatalog(name, r.dir)
		r.order = append(r.order, name)
		log.Debug().Str("catalog", name).Msg("discovered persisted catalog")
	}
	return nil
}

// ensureLocked resolves name to an open, registered handle. Callers must
// hold r.mu.
func (r *Registry) ensureLocked(name string) (*Catalog, error) {
	if cat, ok := r.catalogs[name]; ok {
		if cat.IsOpen() {
			return cat, nil
		}
		if err := cat.Open(); err != nil {
			return nil, err
		}
		return cat, nil
	}

	cat := NewCatalog(name, r.dir)
	if err := cat.Open(); err != nil {
		return nil, err
	}
	r.catalogs[name] = cat
	r.order = append(r.order, name)
	return cat, nil
}

// removeDatabaseFiles deletes the sqlite file and its WAL/SHM siblings.
func removeDatabaseFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
