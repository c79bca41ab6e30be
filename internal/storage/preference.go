package storage

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// DefaultPreferenceKey is the well-known record, duplicated into every
// catalog, naming the catalog that should become current on the next cold
// start. The storage layer is its only interpreter.
const DefaultPreferenceKey = "defaultDB"

// Synchronizer propagates the preferred default catalog name into every
// catalog the registry knows about and reads it back on startup.
type Synchronizer struct {
	registry *Registry
}

// NewSynchronizer creates a default-preference synchronizer over the
// registry.
func NewSynchronizer(registry *Registry) *Synchronizer {
	return &Synchronizer{registry: registry}
}

// LegResult records the outcome of writing the preference into one catalog.
type LegResult struct {
	Catalog string
	Err     error
}

// PropagationResult aggregates the per-catalog outcomes of a fan-out. The
// fan-out is a saga, not a distributed transaction: legs fail independently
// and failures are reported rather than rolled back.
type PropagationResult struct {
	Target string
	Legs   []LegResult
}

// FullyPropagated reports whether every leg succeeded.
func (r PropagationResult) FullyPropagated() bool {
	for _, leg := range r.Legs {
		if leg.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the catalogs whose leg failed.
func (r PropagationResult) Failed() []string {
	var failed []string
	for _, leg := range r.Legs {
		if leg.Err != nil {
			failed = append(failed, leg.Catalog)
		}
	}
	return failed
}

// ApplyStoredDefault reads the stored preference from the current catalog
// and switches to the named catalog if it differs. It runs once during
// startup, after the registry has been populated. Failures are logged and
// treated as "no preference", never as fatal to startup.
func (s *Synchronizer) ApplyStoredDefault() {
	cat := s.registry.Current()
	if cat == nil {
		return
	}

	raw, ok, err := cat.Get(DefaultPreferenceKey)
	if err != nil {
		log.Warn().Err(err).Str("catalog", cat.Name()).Msg("reading stored default preference")
		return
	}
	if !ok {
		return
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		log.Warn().Err(err).Str("catalog", cat.Name()).Msg("stored default preference is not a string")
		return
	}
	if name == "" || name == s.registry.CurrentName() {
		return
	}

	if err := s.registry.Switch(name); err != nil {
		log.Warn().Err(err).Str("preferred", name).Msg("switching to stored default catalog")
		return
	}
	log.Info().Str("catalog", name).Msg("restored preferred default catalog")
}

// SetDefaultForAll writes the preference record into every catalog in the
// registry snapshot, best-effort: a failed leg is logged and reported but
// does not abort propagation to the remaining catalogs. After the fan-out
// the current catalog is switched to name regardless of leg failures, so the
// observable current catalog always matches the caller's intent. The switch
// error, if any, is returned alongside the per-leg results.
func (s *Synchronizer) SetDefaultForAll(name string) (PropagationResult, error) {
	if err := validateCatalogName(name); err != nil {
		return PropagationResult{Target: name}, err
	}

	value, err := json.Marshal(name)
	if err != nil {
		return PropagationResult{Target: name}, err
	}

	result := PropagationResult{Target: name}
	seen := false
	for _, catalogName := range s.registry.Names() {
		if catalogName == name {
			seen = true
		}
		result.Legs = append(result.Legs, LegResult{
			Catalog: catalogName,
			Err:     s.writeLeg(catalogName, value),
		})
	}

	// The target itself may be brand new and absent from the snapshot.
	if !seen {
		result.Legs = append(result.Legs, LegResult{
			Catalog: name,
			Err:     s.writeLeg(name, value),
		})
	}

	if err := s.registry.Switch(name); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Synchronizer) writeLeg(catalogName string, value json.RawMessage) error {
	cat, err := s.registry.Resolve(catalogName)
	if err == nil {
		err = cat.Set(DefaultPreferenceKey, value)
	}
	if err != nil {
		log.Warn().Err(err).Str("catalog", catalogName).Msg("default preference fan-out leg failed")
	}
	return err
}
