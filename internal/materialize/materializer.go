// Package materialize turns parsed hypermedia resources into models and documents and
// writes them into the identity cache.
package materialize

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
)

// Materializer builds models from resources
type Materializer struct {
	registry  *schema.Registry
	storage   storage.Strategy
	logger    *zap.Logger
	overwrite bool
}

// Option configures a Materializer
type Option func(*Materializer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Materializer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPartialOverwrite controls whether embedded fragments and collection items
// replace entries already cached under the same identifier. Defaults to true.
func WithPartialOverwrite(overwrite bool) Option {
	return func(m *Materializer) {
		m.overwrite = overwrite
	}
}

// New creates a materializer writing into strategy
func New(registry *schema.Registry, strategy storage.Strategy, opts ...Option) *Materializer {
	m := &Materializer{
		registry:  registry,
		storage:   strategy,
		logger:    zap.NewNop(),
		overwrite: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Model materializes a single resource and saves it under its identifier and extraKeys
func (m *Materializer) Model(res *hal.Resource, sel schema.Selector, header http.Header, extraKeys ...string) (*model.Model, error) {
	mdl, err := m.build(res, sel, header)
	if err != nil {
		return nil, err
	}
	m.storage.Save(mdl, header, extraKeys...)
	return mdl, nil
}

// Document materializes a collection response. Items come from the embedded list
// relation; the document is saved under requestURL and extraKeys, every item under
// its own identifier.
func (m *Materializer) Document(res *hal.Resource, declared *schema.ModelSchema, sel schema.Selector, header http.Header, requestURL string, extraKeys ...string) (*model.Document, error) {
	if sel == nil {
		sel = schema.Fixed(declared)
	}

	var fragments []*hal.Resource
	if list, ok := res.ListRelation(); ok {
		fragments, _ = res.EmbeddedMany(list)
	} else {
		m.logger.Debug("collection response has no list relation", zap.String("url", requestURL))
	}

	items, err := m.buildAll(fragments, sel)
	if err != nil {
		return nil, err
	}

	doc := model.NewDocument(declared.Type(), requestURL, items, model.NewPagination(res.Page), res)
	m.storage.Save(doc, header, extraKeys...)
	return doc, nil
}

// Embedded materializes the embedded fragment of a relation on parent without any
// network call. It reports false when the parent embeds nothing under the relation.
func (m *Materializer) Embedded(parent *model.Model, p schema.Property) (model.Entity, bool, error) {
	res := parent.Resource()
	if res == nil || !res.HasEmbedded(p.ExternalName) {
		return nil, false, nil
	}

	target, err := m.registry.Get(p.ModelType)
	if err != nil {
		return nil, false, fmt.Errorf("relation %s.%s: %w", parent.Type(), p.Name, err)
	}

	switch p.Kind {
	case schema.KindHasOne:
		fragment, ok := res.EmbeddedOne(p.ExternalName)
		if !ok {
			return nil, false, nil
		}
		child, err := m.build(fragment, schema.Fixed(target), nil)
		if err != nil {
			return nil, false, err
		}
		m.storage.SaveAll([]model.Entity{child}, m.overwrite)
		parent.RecordRelationKey(p.Name, child.UniqueIdentifier())
		return child, true, nil

	case schema.KindHasMany:
		fragments, _ := res.EmbeddedMany(p.ExternalName)
		items, err := m.buildAll(fragments, schema.Fixed(target))
		if err != nil {
			return nil, false, err
		}
		id := parent.Link(p.Name)
		if id == "" {
			id = parent.UniqueIdentifier() + "#" + p.Name
		}
		doc := model.NewDocument(target.Type(), id, items, nil, nil)
		m.storage.SaveAll([]model.Entity{doc}, m.overwrite)
		parent.RecordRelationKey(p.Name, doc.UniqueIdentifier())
		return doc, true, nil

	default:
		return nil, false, nil
	}
}

// Rehydrate materializes a snapshot read back from a persistent backend. Entries already
// in the cache are kept.
func (m *Materializer) Rehydrate(key string, snap storage.Snapshot) (model.Entity, error) {
	res, err := hal.Parse(snap.Body)
	if err != nil {
		return nil, err
	}
	s, err := m.registry.Get(snap.Type)
	if err != nil {
		return nil, err
	}

	keep := *m
	keep.overwrite = false

	if snap.Collection {
		id := snap.ID
		if id == "" {
			id = key
		}
		return keep.Document(res, s, nil, snap.HTTPHeader(), id, key)
	}
	return keep.Model(res, schema.Fixed(s), snap.HTTPHeader(), key)
}

func (m *Materializer) build(res *hal.Resource, sel schema.Selector, header http.Header) (*model.Model, error) {
	s, err := sel(res)
	if err != nil {
		return nil, err
	}

	mdl := model.New(s, m.storage)
	if err := m.Refresh(mdl, res, header); err != nil {
		return nil, err
	}
	return mdl, nil
}

// Refresh repopulates an existing model from res, including its embedded relations.
// The model is not saved.
func (m *Materializer) Refresh(mdl *model.Model, res *hal.Resource, header http.Header) error {
	if err := mdl.Populate(res, header, m.box); err != nil {
		return fmt.Errorf("failed to populate %s: %w", mdl.Type(), err)
	}

	for _, p := range mdl.Schema().Relationships() {
		if _, _, err := m.Embedded(mdl, p); err != nil {
			m.logger.Warn("skipping embedded relationship",
				zap.String("model", mdl.Type()),
				zap.String("relationship", p.Name),
				zap.Error(err))
		}
	}
	return nil
}

func (m *Materializer) buildAll(fragments []*hal.Resource, sel schema.Selector) ([]*model.Model, error) {
	items := make([]*model.Model, 0, len(fragments))
	entities := make([]model.Entity, 0, len(fragments))
	for _, fragment := range fragments {
		item, err := m.build(fragment, sel, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		entities = append(entities, item)
	}
	m.storage.SaveAll(entities, m.overwrite)
	return items, nil
}

// box materializes a nested object attribute, or a list of them, as models of modelType.
// Boxed models are not cached.
func (m *Materializer) box(modelType string, value interface{}) (interface{}, error) {
	s, err := m.registry.Get(modelType)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return m.boxOne(s, v)
	case []interface{}:
		items := make([]*model.Model, 0, len(v))
		for _, elem := range v {
			item, err := m.boxOne(s, elem)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return value, nil
	}
}

func (m *Materializer) boxOne(s *schema.ModelSchema, value interface{}) (*model.Model, error) {
	res, err := hal.FromValue(value)
	if err != nil {
		return nil, err
	}
	return m.build(res, schema.Fixed(s), nil)
}
