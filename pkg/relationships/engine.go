package relationships

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// DefaultMaxDepth is the deepest path the engine resolves
const DefaultMaxDepth = 10

// Fetcher loads related resources over the network and caches them
type Fetcher interface {
	FetchModel(ctx context.Context, s *schema.ModelSchema, url string, opts *transport.RequestOptions) (*model.Model, error)
	FetchDocument(ctx context.Context, s *schema.ModelSchema, url string, opts *transport.RequestOptions) (*model.Document, error)
}

// Embedder materializes relations embedded in a parent's resource
type Embedder interface {
	Embedded(parent *model.Model, p schema.Property) (model.Entity, bool, error)
}

// Engine resolves relationship paths
type Engine struct {
	registry *schema.Registry
	fetcher  Fetcher
	embedder Embedder
	cache    storage.Strategy
	logger   *zap.Logger
	maxDepth int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth sets the deepest path the engine resolves
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEngine creates a resolution engine
func NewEngine(registry *schema.Registry, fetcher Fetcher, embedder Embedder, cache storage.Strategy, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		fetcher:  fetcher,
		embedder: embedder,
		cache:    cache,
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve resolves descriptors on target, a model or every model of a document.
// subsequent options apply to every relationship fetch. Sibling relations are fetched
// concurrently; Resolve returns once all of them and their children are done, with
// the first error if any failed.
func (e *Engine) Resolve(ctx context.Context, target model.Entity, descriptors []Descriptor, subsequent *transport.RequestOptions) error {
	for _, d := range descriptors {
		if depth(d.Name) > e.maxDepth {
			return fmt.Errorf("%w: %q is deeper than %d levels", ErrMaxDepthExceeded, d.Name, e.maxDepth)
		}
	}
	return e.resolve(ctx, target, descriptors, subsequent, 1)
}

func (e *Engine) resolve(ctx context.Context, target model.Entity, descriptors []Descriptor, subsequent *transport.RequestOptions, level int) error {
	if len(descriptors) == 0 || target == nil {
		return nil
	}
	if level > e.maxDepth {
		return ErrMaxDepthExceeded
	}

	models, err := modelsOf(target)
	if err != nil {
		return err
	}

	tree := BuildTree(descriptors)
	var g errgroup.Group
	for _, m := range models {
		for _, node := range tree {
			prop, ok := m.Schema().Property(node.Name)
			if !ok || !prop.Kind.IsRelationship() {
				e.logger.Warn("skipping unknown relationship",
					zap.String("model", m.Type()),
					zap.String("relationship", node.Name))
				continue
			}

			m, node := m, node
			g.Go(func() error {
				return e.resolveRelation(ctx, m, prop, node, subsequent, level)
			})
		}
	}
	return g.Wait()
}

func (e *Engine) resolveRelation(ctx context.Context, parent *model.Model, prop schema.Property, node *Node, subsequent *transport.RequestOptions, level int) error {
	target, err := e.registry.Get(prop.ModelType)
	if err != nil {
		e.logger.Warn("skipping relationship with unregistered type",
			zap.String("model", parent.Type()),
			zap.String("relationship", prop.Name),
			zap.Error(err))
		return nil
	}

	related, embedded, err := e.embedder.Embedded(parent, prop)
	if err != nil {
		return err
	}

	if !embedded {
		href := parent.Link(prop.Name)
		if href == "" {
			e.logger.Warn("relationship unresolved",
				zap.String("model", parent.Type()),
				zap.String("id", parent.UniqueIdentifier()),
				zap.String("relationship", prop.Name))
			return nil
		}

		opts := subsequent.Merge(node.Options())
		related, err = e.fetch(ctx, parent, prop, target, href, opts)
		if err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", prop.Name, err)
		}
	} else {
		e.logger.Debug("relationship embedded",
			zap.String("model", parent.Type()),
			zap.String("relationship", prop.Name))
	}

	return e.resolve(ctx, related, node.Children, subsequent, level+1)
}

func (e *Engine) fetch(ctx context.Context, parent *model.Model, prop schema.Property, target *schema.ModelSchema, href string, opts *transport.RequestOptions) (model.Entity, error) {
	if prop.Kind == schema.KindHasMany {
		doc, err := e.fetcher.FetchDocument(ctx, target, href, opts)
		if err != nil {
			return nil, err
		}
		e.recordKey(parent, prop.Name, doc.UniqueIdentifier())
		return doc, nil
	}

	mdl, err := e.fetcher.FetchModel(ctx, target, href, opts)
	if err != nil {
		return nil, err
	}
	parent.RecordRelationKey(prop.Name, mdl.UniqueIdentifier())
	return mdl, nil
}

// recordKey points the relation at key on parent and on any other cached copy of it
func (e *Engine) recordKey(parent *model.Model, name, key string) {
	parent.RecordRelationKey(name, key)
	if e.cache == nil {
		return
	}

	e.cache.Update(parent.UniqueIdentifier(), func(current model.Entity) model.Entity {
		if other, ok := current.(*model.Model); ok && other != parent {
			other.RecordRelationKey(name, key)
		}
		return current
	})
}

func modelsOf(target model.Entity) ([]*model.Model, error) {
	switch t := target.(type) {
	case *model.Model:
		return []*model.Model{t}, nil
	case *model.Document:
		return t.Models(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
	}
}
