package storage

import (
	"encoding/json"
)

// Engine serializes a catalog's full contents to an ordered record sequence
// and atomically replaces a catalog's contents from such a sequence.
type Engine struct {
	registry *Registry
}

// NewEngine creates a backup/restore engine over the registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Backup exports every record of the named catalog ("" means the current
// one). An empty catalog yields an empty slice, not an error.
func (e *Engine) Backup(name string) ([]Record, error) {
	cat, err := e.target(name)
	if err != nil {
		return nil, err
	}
	return cat.ExportAll()
}

// Restore atomically replaces the named catalog's contents with records
// ("" means the current one). The payload is validated strictly before any
// mutating call; on validation failure the catalog is untouched. Restoring
// an empty sequence clears the catalog. A partially-restored catalog is
// never observable: ReplaceAll runs clear and bulk insert in one transaction.
func (e *Engine) Restore(name string, records []Record) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}
	cat, err := e.target(name)
	if err != nil {
		return err
	}
	return cat.ReplaceAll(records)
}

// RestoreJSON parses a raw backup payload and restores it into the named
// catalog.
func (e *Engine) RestoreJSON(name string, data []byte) error {
	records, err := ParseBackup(data)
	if err != nil {
		return err
	}
	return e.Restore(name, records)
}

func (e *Engine) target(name string) (*Catalog, error) {
	if name == "" {
		name = e.registry.CurrentName()
	}
	return e.registry.Resolve(name)
}

// ValidateRecords checks that every record carries both a key and a value.
func ValidateRecords(records []Record) error {
	for i, rec := range records {
		if rec.Key == "" {
			return validationErrorf("record %d is missing a key", i)
		}
		if len(rec.Value) == 0 {
			return validationErrorf("record %d (%q) is missing a value", i, rec.Key)
		}
	}
	return nil
}

// ParseBackup decodes a backup payload. The accepted shape is exactly a JSON
// array of {"key": string, "value": any} objects; anything else fails with a
// ValidationError before any catalog is touched.
func ParseBackup(data []byte) ([]Record, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, validationErrorf("backup payload must be a JSON array: %v", err)
	}

	records := make([]Record, 0, len(elements))
	for i, elem := range elements {
		var entry struct {
			Key   *string         `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(elem, &entry); err != nil {
			return nil, validationErrorf("backup record %d is not an object: %v", i, err)
		}
		if entry.Key == nil || *entry.Key == "" {
			return nil, validationErrorf("backup record %d is missing a key", i)
		}
		if entry.Value == nil {
			return nil, validationErrorf("backup record %d (%q) is missing a value", i, *entry.Key)
		}
		records = append(records, Record{Key: *entry.Key, Value: entry.Value})
	}
	return records, nil
}

// MarshalBackup renders records in the backup wire format: a JSON array with
// stable indentation.
func MarshalBackup(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}
