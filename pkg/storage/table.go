package storage

import (
	"sync"

	"github.com/conduit-lang/halstore/pkg/model"
)

type entry struct {
	entity model.Entity
	token  string
}

// table is the locked map shared by the in-memory strategies
type table struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func newTable() *table {
	return &table{
		entries: make(map[string]entry),
	}
}

func (t *table) put(e entry, keys ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, key := range keys {
		if key == "" {
			continue
		}
		t.entries[key] = e
	}
}

func (t *table) putAll(entries []entry, overwrite bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		if e.entity == nil {
			continue
		}
		id := e.entity.UniqueIdentifier()
		if _, exists := t.entries[id]; exists && !overwrite {
			continue
		}
		t.entries[id] = e
	}
}

func (t *table) get(key string) (entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[key]
	return e, ok
}

// removeEntity deletes every key whose entry holds entity, returning the keys
func (t *table) removeEntity(entity model.Entity) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for key, e := range t.entries {
		if e.entity == entity {
			delete(t.entries, key)
			removed = append(removed, key)
		}
	}
	if id := entity.UniqueIdentifier(); id != "" {
		if _, ok := t.entries[id]; ok {
			delete(t.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (t *table) update(key string, fn func(model.Entity) model.Entity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.entries[key]
	next := fn(current.entity)
	if next == nil {
		delete(t.entries, key)
		return
	}
	if next != current.entity {
		current.token = ""
	}
	t.entries[key] = entry{entity: next, token: current.token}
}

func (t *table) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func entityKeys(entity model.Entity, extraKeys []string) []string {
	keys := make([]string, 0, len(extraKeys)+1)
	keys = append(keys, entity.UniqueIdentifier())
	return append(keys, extraKeys...)
}
