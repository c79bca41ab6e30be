package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is a single key/value pair within a catalog. The value is an opaque
// JSON payload; the storage layer never inspects its shape.
type Record struct {
	Key   string          `gorm:"primaryKey" json:"key"`
	Value json.RawMessage `json:"value"`
}

// Catalog is a handle on one named, transactional key-value table backed by
// its own sqlite database file. Handles are cheap and may stay open
// concurrently; the Registry owns their lifecycle.
//
// The mutex guards the db handle itself: Open and Close take the write lock,
// record operations hold the read lock for their whole duration, so a close
// can never pull the connection out from under an in-flight operation.
type Catalog struct {
	name string
	path string

	mu sync.RWMutex
	db *gorm.DB
}

// NewCatalog builds an unopened handle for the named catalog inside dir.
func NewCatalog(name, dir string) *Catalog {
	return &Catalog{
		name: name,
		path: filepath.Join(dir, name+".db"),
	}
}

func (c *Catalog) Name() string { return c.name }

// Path returns the sqlite file backing this catalog.
func (c *Catalog) Path() string { return c.path }

// Open connects to the sqlite file and ensures the records table exists.
// Opening an already-open catalog is a no-op.
func (c *Catalog) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	db, err := gorm.Open(sqlite.Open(c.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return &IOError{Op: "open catalog", Catalog: c.name, Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return &IOError{Op: "open catalog", Catalog: c.name, Err: err}
	}
	// One connection per catalog: concurrent writers queue in the pool and
	// sqlite sees them one at a time, instead of surfacing busy errors.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Record{}); err != nil {
		sqlDB.Close()
		return &IOError{Op: "migrate catalog", Catalog: c.name, Err: err}
	}

	c.db = db
	return nil
}

// IsOpen reports whether the handle currently holds a live connection.
func (c *Catalog) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db != nil
}

// Close releases the underlying connection. The persisted data is untouched
// and the handle can be reopened later. Close blocks until in-flight record
// operations have drained.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return &IOError{Op: "close catalog", Catalog: c.name, Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &IOError{Op: "close catalog", Catalog: c.name, Err: err}
	}
	return nil
}

// Get returns the value stored under key. A missing key is reported as
// absent, not as an error.
func (c *Catalog) Get(key string) (json.RawMessage, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, false, ErrClosed
	}
	var rec Record
	err := c.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &IOError{Op: "get", Catalog: c.name, Err: err}
	}
	return rec.Value, true, nil
}

// Set stores value under key, overwriting any previous value. The write is a
// single atomic upsert, committed immediately: concurrent writers to the same
// key serialize in the store, last writer wins.
func (c *Catalog) Set(key string, value json.RawMessage) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return ErrClosed
	}

	rec := Record{Key: key, Value: value}
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rec).Error
	if err != nil {
		return &IOError{Op: "set", Catalog: c.name, Err: err}
	}
	return nil
}

// Remove deletes the record stored under key. Removing a missing key is a
// no-op.
func (c *Catalog) Remove(key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return ErrClosed
	}
	if err := c.db.Where("key = ?", key).Delete(&Record{}).Error; err != nil {
		return &IOError{Op: "remove", Catalog: c.name, Err: err}
	}
	return nil
}

// Clear deletes every record in the catalog.
func (c *Catalog) Clear() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return ErrClosed
	}
	if err := c.db.Where("1 = 1").Delete(&Record{}).Error; err != nil {
		return &IOError{Op: "clear", Catalog: c.name, Err: err}
	}
	return nil
}

// Keys returns all keys in the catalog, ordered by key.
func (c *Catalog) Keys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrClosed
	}
	keys := []string{}
	err := c.db.Model(&Record{}).Order("key").Pluck("key", &keys).Error
	if err != nil {
		return nil, &IOError{Op: "keys", Catalog: c.name, Err: err}
	}
	return keys, nil
}

// Values returns all values in the catalog, in key order.
func (c *Catalog) Values() ([]json.RawMessage, error) {
	records, err := c.ExportAll()
	if err != nil {
		return nil, err
	}
	values := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		values = append(values, rec.Value)
	}
	return values, nil
}

// ExportAll returns every record in the catalog in a stable order (by key).
func (c *Catalog) ExportAll() ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrClosed
	}
	records := []Record{}
	if err := c.db.Order("key").Find(&records).Error; err != nil {
		return nil, &IOError{Op: "export", Catalog: c.name, Err: err}
	}
	return records, nil
}

// ReplaceAll atomically replaces the catalog's contents with records. The
// clear and the bulk insert run in a single transaction: if the insert fails,
// the clear is rolled back and the catalog is left exactly as it was.
func (c *Catalog) ReplaceAll(records []Record) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return ErrClosed
	}
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Record{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return &IOError{Op: "replace", Catalog: c.name, Err: err}
	}
	return nil
}

// validateCatalogName rejects names that cannot map onto a database file.
func validateCatalogName(name string) error {
	if name == "" {
		return validationErrorf("catalog name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return validationErrorf("catalog name %q contains path elements", name)
	}
	return nil
}
