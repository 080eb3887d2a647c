// Package model holds the materialized object graph: models, documents, pagination and
// the relationship variant returned by relation accessors.
package model

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/conduit-lang/halstore/internal/tracking"
	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/google/uuid"
)

// SyntheticPrefix marks identifiers generated locally for models without a self link
const SyntheticPrefix = "local:"

// Entity is anything the identity cache can hold
type Entity interface {
	UniqueIdentifier() string
}

// Lookup reads entities from the identity cache
type Lookup interface {
	Get(id string) (Entity, bool)
}

// BoxFunc materializes a boxed attribute value into a model of the given type
type BoxFunc func(modelType string, value interface{}) (interface{}, error)

// Model is a materialized entity
type Model struct {
	schema      *schema.ModelSchema
	lookup      Lookup
	syntheticID string

	mu            sync.RWMutex
	selfLink      string
	resource      *hal.Resource
	tracker       *tracking.ChangeTracker
	relationKeys  map[string]string
	relationships map[string]Relationship
	dirty         map[string]bool
	stale         bool
}

// New creates an empty model of the given schema
func New(s *schema.ModelSchema, lookup Lookup) *Model {
	return NewWithData(s, lookup, nil)
}

// NewWithData creates a model from local attribute values keyed by local property name.
// The values become the baseline for change tracking.
func NewWithData(s *schema.ModelSchema, lookup Lookup, data map[string]interface{}) *Model {
	values := make(map[string]interface{}, len(data))
	for name, v := range data {
		values[name] = v
	}
	return &Model{
		schema:        s,
		lookup:        lookup,
		syntheticID:   SyntheticPrefix + uuid.NewString(),
		tracker:       tracking.NewChangeTracker(values),
		relationKeys:  make(map[string]string),
		relationships: make(map[string]Relationship),
		dirty:         make(map[string]bool),
	}
}

// Schema returns the model's schema
func (m *Model) Schema() *schema.ModelSchema { return m.schema }

// Type returns the model's type tag
func (m *Model) Type() string { return m.schema.Type() }

// UniqueIdentifier is the self link once present, otherwise the synthetic identifier
func (m *Model) UniqueIdentifier() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selfLink != "" {
		return m.selfLink
	}
	return m.syntheticID
}

// SyntheticID returns the locally generated identifier
func (m *Model) SyntheticID() string { return m.syntheticID }

// SelfLink returns the self link, or "" before the model is persisted
func (m *Model) SelfLink() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selfLink
}

// IsPersisted reports whether the model has a self link
func (m *Model) IsPersisted() bool {
	return m.SelfLink() != ""
}

// AssignSelfLink fixes the model's identity. Only the first assignment takes effect;
// it returns the identifier in use before the call and whether the identity changed.
func (m *Model) AssignSelfLink(href string) (previous string, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selfLink != "" {
		return m.selfLink, false
	}
	previous = m.syntheticID
	if href == "" {
		return previous, false
	}
	m.selfLink = href
	return previous, true
}

// Resource returns the raw backing resource, nil for models never fetched
func (m *Model) Resource() *hal.Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resource
}

// Populate fills the model from a raw resource and the response header that carried it.
// Attribute values pass through their read transform; boxed attributes go through box.
// The populated values become the change-tracking baseline.
func (m *Model) Populate(res *hal.Resource, header http.Header, box BoxFunc) error {
	values := make(map[string]interface{})

	for _, p := range m.schema.PropertiesOfKind(schema.KindAttribute, schema.KindHeaderAttribute) {
		var (
			raw interface{}
			ok  bool
		)
		if p.Kind == schema.KindHeaderAttribute {
			if header == nil {
				continue
			}
			if hv := header.Values(p.ExternalName); len(hv) > 0 {
				raw, ok = hv[0], true
			}
		} else {
			raw, ok = res.Attribute(p.ExternalName)
		}
		if !ok {
			continue
		}

		value := raw
		if p.ModelType != "" && box != nil && raw != nil {
			boxed, err := box(p.ModelType, raw)
			if err != nil {
				return fmt.Errorf("attribute %s: %w", p.Name, err)
			}
			value = boxed
		}
		if p.Transform != nil {
			value = p.Transform(value)
		}
		values[p.Name] = value
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resource = res
	m.stale = false
	if m.selfLink == "" {
		m.selfLink = res.SelfLink()
	}
	m.tracker.Replace(values)
	return nil
}

// Get returns an attribute value by local name
func (m *Model) Get(name string) interface{} {
	v, _ := m.tracker.Value(name)
	return v
}

// GetString returns a string attribute, or "" when absent or not a string
func (m *Model) GetString(name string) string {
	s, _ := m.Get(name).(string)
	return s
}

// Set changes an attribute value
func (m *Model) Set(name string, value interface{}) error {
	p, ok := m.schema.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, m.Type(), name)
	}
	if p.Kind != schema.KindAttribute && p.Kind != schema.KindHeaderAttribute {
		return fmt.Errorf("%w: %s.%s is a %s", ErrNotAttribute, m.Type(), name, p.Kind)
	}
	m.tracker.Set(name, value)
	return nil
}

// Attributes returns a copy of every attribute value keyed by local name
func (m *Model) Attributes() map[string]interface{} {
	return m.tracker.Snapshot()
}

// Changed reports whether an attribute differs from its last materialized or saved value
func (m *Model) Changed(name string) bool {
	return m.tracker.Changed(name)
}

// InSync reports whether the attribute values still match the backing resource: no
// local change is pending and no write has been applied without a fresh representation
func (m *Model) InSync() bool {
	m.mu.RLock()
	stale := m.stale
	m.mu.RUnlock()
	return !stale && !m.tracker.HasChanges()
}

// MarkSaved makes the current attribute values the baseline for the next partial update
func (m *Model) MarkSaved() {
	changed := m.tracker.HasChanges()
	m.tracker.Reset()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = make(map[string]bool)
	m.stale = m.stale || changed
}

// Link returns the href of the named property's link relation, or "" when absent
func (m *Model) Link(name string) string {
	ext := name
	if p, ok := m.schema.Property(name); ok {
		ext = p.ExternalName
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.resource == nil {
		return ""
	}
	return m.resource.Href(ext)
}

// HasEmbedded reports whether the raw resource embeds the named relation
func (m *Model) HasEmbedded(name string) bool {
	p, ok := m.schema.Property(name)
	if !ok {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resource != nil && m.resource.HasEmbedded(p.ExternalName)
}

// RecordRelationKey stores the cache key a relation currently resolves to
func (m *Model) RecordRelationKey(name, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationKeys[name] = key
}

// RelationKey returns the cache key a relation resolves to: the recorded key when one
// exists, otherwise the relation's link href
func (m *Model) RelationKey(name string) string {
	m.mu.RLock()
	key := m.relationKeys[name]
	m.mu.RUnlock()
	if key != "" {
		return key
	}
	return m.Link(name)
}

// GetRelationship resolves a relation through the identity cache.
// A relation assigned with SetRelationship wins over the cached value.
func (m *Model) GetRelationship(name string) (Relationship, bool) {
	p, ok := m.schema.Property(name)
	if !ok || !p.Kind.IsRelationship() {
		return Relationship{}, false
	}

	m.mu.RLock()
	local, hasLocal := m.relationships[name]
	m.mu.RUnlock()
	if hasLocal {
		return local, !local.IsZero()
	}

	key := m.RelationKey(name)
	if key == "" || m.lookup == nil {
		return Relationship{}, false
	}

	entity, ok := m.lookup.Get(key)
	if !ok {
		return Relationship{}, false
	}

	switch v := entity.(type) {
	case *Model:
		if p.Kind == schema.KindHasOne {
			return One(v), true
		}
	case *Document:
		if p.Kind == schema.KindHasMany {
			return Many(v), true
		}
	}
	return Relationship{}, false
}

// SetRelationship assigns a relation locally
func (m *Model) SetRelationship(name string, rel Relationship) error {
	p, ok := m.schema.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, m.Type(), name)
	}
	if !p.Kind.IsRelationship() {
		return fmt.Errorf("%w: %s.%s is a %s", ErrNotRelationship, m.Type(), name, p.Kind)
	}
	if !rel.IsZero() && rel.IsMany() != (p.Kind == schema.KindHasMany) {
		return fmt.Errorf("%w: %s.%s expects %s", ErrRelationshipMismatch, m.Type(), name, p.Kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships[name] = rel
	m.dirty[name] = true
	return nil
}
