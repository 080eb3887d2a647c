package storage

import (
	"context"
	"net/http"
	"strings"

	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Conditional stores each entity with the ETag of the response that produced it and
// revalidates with If-None-Match
type Conditional struct {
	table *table
}

// NewConditional creates an empty conditional strategy
func NewConditional() *Conditional {
	return &Conditional{table: newTable()}
}

// Save stores an (entity, token) pair under the identifier and every extra key
func (c *Conditional) Save(entity model.Entity, header http.Header, extraKeys ...string) {
	if entity == nil {
		return
	}
	c.table.put(entry{entity: entity, token: TokenFromHeader(header)}, entityKeys(entity, extraKeys)...)
}

// SaveAll stores entities without tokens; an overwritten entry loses its token
func (c *Conditional) SaveAll(entities []model.Entity, allowPartialOverwrite bool) {
	entries := make([]entry, 0, len(entities))
	for _, e := range entities {
		entries = append(entries, entry{entity: e})
	}
	c.table.putAll(entries, allowPartialOverwrite)
}

// Get unwraps the stored pair
func (c *Conditional) Get(id string) (model.Entity, bool) {
	e, ok := c.table.get(id)
	return e.entity, ok
}

// Token returns the validation token stored under id
func (c *Conditional) Token(id string) string {
	e, _ := c.table.get(id)
	return e.token
}

// Remove drops every key holding the entity
func (c *Conditional) Remove(entity model.Entity) {
	if entity == nil {
		return
	}
	c.table.removeEntity(entity)
}

// EnrichRequestOptions sets If-None-Match from the token stored under id
func (c *Conditional) EnrichRequestOptions(id string, opts *transport.RequestOptions) {
	if opts == nil {
		return
	}
	if token := c.Token(id); token != "" {
		opts.SetHeader("If-None-Match", token)
	}
}

// Update runs fn on the entry at id under the write lock. The token survives only
// when fn returns the same entity.
func (c *Conditional) Update(id string, fn func(model.Entity) model.Entity) {
	c.table.update(id, fn)
}

// WrapFetch emits the cached value, then the fresh value only when its token differs
// from the one the cached value was stored with
func (c *Conditional) WrapFetch(ctx context.Context, urls []string, cached model.Entity, fresh FetchFunc, emit func(model.Entity)) error {
	before := c.firstToken(urls)
	if cached != nil {
		emit(cached)
	}

	result, err := fresh(ctx)
	if err != nil {
		return err
	}

	if cached != nil {
		if result == cached {
			return nil
		}
		if result != nil {
			after := c.firstToken(urls)
			if after == "" {
				after = c.Token(result.UniqueIdentifier())
			}
			if Equal(before, after) {
				return nil
			}
		}
	}
	emit(result)
	return nil
}

func (c *Conditional) firstToken(keys []string) string {
	for _, key := range keys {
		if token := c.Token(key); token != "" {
			return token
		}
	}
	return ""
}

// Len returns the number of keys
func (c *Conditional) Len() int {
	return c.table.len()
}

// TokenFromHeader extracts the validation token of a response
func TokenFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return strings.TrimSpace(header.Get("ETag"))
}

// Equal compares two validation tokens. Weak and strong forms of the same tag are
// equal; an empty token equals nothing.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return stripWeak(a) == stripWeak(b)
}

func stripWeak(tag string) string {
	if len(tag) > 2 && tag[:2] == "W/" {
		return tag[2:]
	}
	return tag
}
