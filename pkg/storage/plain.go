package storage

import (
	"net/http"

	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Plain overwrites entries and never revalidates
type Plain struct {
	table *table
}

// NewPlain creates an empty plain strategy
func NewPlain() *Plain {
	return &Plain{table: newTable()}
}

// Save replaces the entries at the entity's identifier and extra keys
func (p *Plain) Save(entity model.Entity, _ http.Header, extraKeys ...string) {
	if entity == nil {
		return
	}
	p.table.put(entry{entity: entity}, entityKeys(entity, extraKeys)...)
}

// SaveAll stores every entity under its identifier
func (p *Plain) SaveAll(entities []model.Entity, allowPartialOverwrite bool) {
	entries := make([]entry, 0, len(entities))
	for _, e := range entities {
		entries = append(entries, entry{entity: e})
	}
	p.table.putAll(entries, allowPartialOverwrite)
}

// Get returns the entity stored under id
func (p *Plain) Get(id string) (model.Entity, bool) {
	e, ok := p.table.get(id)
	return e.entity, ok
}

// Remove drops every key holding the entity
func (p *Plain) Remove(entity model.Entity) {
	if entity == nil {
		return
	}
	p.table.removeEntity(entity)
}

// EnrichRequestOptions is a no-op
func (p *Plain) EnrichRequestOptions(string, *transport.RequestOptions) {}

// Update runs fn on the entry at id under the write lock
func (p *Plain) Update(id string, fn func(model.Entity) model.Entity) {
	p.table.update(id, fn)
}

// Len returns the number of keys
func (p *Plain) Len() int {
	return p.table.len()
}
