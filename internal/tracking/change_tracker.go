// Package tracking records attribute modifications on a model so that partial updates
// only send the fields whose value differs from the last materialized or saved state.
package tracking

import (
	"reflect"
	"sort"
	"sync"
)

// FieldChange represents a change to a single attribute
type FieldChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// ChangeTracker tracks attribute values against a baseline
type ChangeTracker struct {
	mu       sync.RWMutex
	original map[string]interface{}
	current  map[string]interface{}
}

// NewChangeTracker creates a tracker whose baseline and current state are both original
func NewChangeTracker(original map[string]interface{}) *ChangeTracker {
	return &ChangeTracker{
		original: deepCopyMap(original),
		current:  deepCopyMap(original),
	}
}

// deepCopyMap creates a deep copy of a map
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

// deepCopyValue copies the JSON container shapes; other values are returned as-is
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		slice := make([]interface{}, len(val))
		for i, item := range val {
			slice[i] = deepCopyValue(item)
		}
		return slice
	default:
		return v
	}
}

// deepEqual compares two values for equality, handling nil
func deepEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Set updates an attribute value
func (ct *ChangeTracker) Set(field string, value interface{}) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.current[field] = deepCopyValue(value)
}

// Value returns the current value of an attribute
func (ct *ChangeTracker) Value(field string) (interface{}, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	v, ok := ct.current[field]
	return v, ok
}

// PreviousValue returns the baseline value of an attribute
func (ct *ChangeTracker) PreviousValue(field string) interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.original[field]
}

// Changed returns true if the attribute differs from its baseline
func (ct *ChangeTracker) Changed(field string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.changedLocked(field)
}

func (ct *ChangeTracker) changedLocked(field string) bool {
	newValue, hasNew := ct.current[field]
	oldValue, hasOld := ct.original[field]
	if hasNew != hasOld {
		return true
	}
	return !deepEqual(oldValue, newValue)
}

// ChangedFields returns the changed attributes, sorted
func (ct *ChangeTracker) ChangedFields() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var fields []string
	for field := range ct.current {
		if ct.changedLocked(field) {
			fields = append(fields, field)
		}
	}
	for field := range ct.original {
		if _, exists := ct.current[field]; !exists {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Changes returns every changed attribute with its old and new value
func (ct *ChangeTracker) Changes() map[string]*FieldChange {
	fields := ct.ChangedFields()

	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]*FieldChange, len(fields))
	for _, field := range fields {
		result[field] = &FieldChange{
			Field:    field,
			OldValue: ct.original[field],
			NewValue: ct.current[field],
		}
	}
	return result
}

// HasChanges returns true if any attribute differs from its baseline
func (ct *ChangeTracker) HasChanges() bool {
	return len(ct.ChangedFields()) > 0
}

// ChangedData returns the new values of changed attributes. When within is not empty,
// only changed attributes named in within are returned.
func (ct *ChangeTracker) ChangedData(within ...string) map[string]interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	candidates := within
	if len(candidates) == 0 {
		candidates = make([]string, 0, len(ct.current))
		for field := range ct.current {
			candidates = append(candidates, field)
		}
	}

	result := make(map[string]interface{})
	for _, field := range candidates {
		value, exists := ct.current[field]
		if exists && ct.changedLocked(field) {
			result[field] = deepCopyValue(value)
		}
	}
	return result
}

// Snapshot returns a copy of the current state
func (ct *ChangeTracker) Snapshot() map[string]interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return deepCopyMap(ct.current)
}

// Reset makes the current state the new baseline.
// It is called after a successful save.
func (ct *ChangeTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.original = deepCopyMap(ct.current)
}

// Replace sets both baseline and current state, used when a fresh server
// representation arrives
func (ct *ChangeTracker) Replace(values map[string]interface{}) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.original = deepCopyMap(values)
	ct.current = deepCopyMap(values)
}
