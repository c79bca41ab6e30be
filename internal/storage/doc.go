// Package storage implements the local multi-catalog persistence layer.
//
// # Architecture
//
// The layer is organised bottom-up:
//
//	storage/
//	├── catalog.go     # One sqlite-backed key-value table (open/close, CRUD, ReplaceAll)
//	├── registry.go    # name → Catalog map, current catalog, create/switch/delete
//	├── backup.go      # Export/restore engine with strict payload validation
//	├── preference.go  # "defaultDB" fan-out and cold-start preference application
//	├── manager.go     # Public surface behind a one-shot readiness gate
//	└── errors.go      # IOError / ValidationError taxonomy
//
// # Usage
//
//	mgr := storage.NewManager(dataDir, "default")
//	mgr.Start()
//	if err := mgr.WhenReady(ctx); err != nil { ... }
//
//	err := mgr.SetItem(ctx, "notes", myNotes)
//	raw, ok, err := mgr.GetItem(ctx, "notes")
//
// Every catalog is an independent sqlite database file under the data
// directory. Values are opaque JSON; the layer never inspects their shape.
// Callers that want typed access use the generic GetItemAs helper.
//
// # Concurrency
//
// The registry guards its map and the current-catalog name with a single
// mutex, so two concurrent switches serialize and the last one to acquire
// the lock wins. Each catalog guards its own handle with a read-write mutex
// (closing waits for in-flight operations) and funnels writes through a
// single connection, so concurrent writers to one catalog serialize in the
// store. Operations on different catalogs are fully independent.
package storage
