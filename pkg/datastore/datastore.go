// Package datastore is the request orchestrator: it builds canonical URLs, dispatches
// requests through a transport, materializes responses into the identity cache and
// resolves requested relationship paths.
package datastore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/internal/materialize"
	"github.com/conduit-lang/halstore/internal/urlbuilder"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/relationships"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
	"github.com/conduit-lang/halstore/pkg/storage/backend"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Config holds the datastore configuration
type Config struct {
	// BaseURL is the scheme and host of the API
	BaseURL string
	// Endpoint is the API path prefix under BaseURL
	Endpoint string
	// Strategy selects the identity cache strategy: none, etag, persistent or custom
	Strategy string
	// CustomStrategy is the implementation used when Strategy is custom
	CustomStrategy storage.Strategy
	// Backend stores snapshots for the persistent strategy; defaults to memory
	Backend backend.Backend
	// SnapshotTTL is the backend time-to-live of persistent snapshots
	SnapshotTTL time.Duration
	// Defaults are the library-wide request options, the lowest precedence tier
	Defaults *transport.RequestOptions
	// MaxIncludeDepth bounds relationship paths; zero uses the engine default
	MaxIncludeDepth int
	// KeepCachedFragments stops embedded fragments and collection items from
	// replacing entries already cached under the same identifier
	KeepCachedFragments bool
}

// Option configures a Datastore
type Option func(*Datastore)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Datastore) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Datastore is one session over a hypermedia API with its own identity cache
type Datastore struct {
	config       Config
	registry     *schema.Registry
	transport    transport.Transport
	storage      storage.Strategy
	materializer *materialize.Materializer
	engine       *relationships.Engine
	logger       *zap.Logger
}

// New creates a datastore. A nil transport uses transport.NewHTTP with the default client.
func New(cfg Config, registry *schema.Registry, t transport.Transport, opts ...Option) (*Datastore, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: a schema registry is required", ErrConfiguration)
	}

	d := &Datastore{
		config:   cfg,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if t == nil {
		t = transport.NewHTTP(nil, transport.WithLogger(d.logger))
	}
	d.transport = t

	strategy, err := d.buildStrategy()
	if err != nil {
		return nil, err
	}
	d.storage = strategy

	d.materializer = materialize.New(registry, strategy,
		materialize.WithLogger(d.logger),
		materialize.WithPartialOverwrite(!cfg.KeepCachedFragments))
	d.engine = relationships.NewEngine(registry, fetcher{d: d}, d.materializer, strategy,
		relationships.WithLogger(d.logger),
		relationships.WithMaxDepth(cfg.MaxIncludeDepth))

	return d, nil
}

func (d *Datastore) buildStrategy() (storage.Strategy, error) {
	kind, err := storage.ParseKind(d.config.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	switch kind {
	case storage.KindNone:
		return storage.NewPlain(), nil
	case storage.KindETag:
		return storage.NewConditional(), nil
	case storage.KindPersistent:
		b := d.config.Backend
		if b == nil {
			b = backend.NewMemory()
			d.config.Backend = b
		}
		return storage.NewPersistent(storage.NewConditional(), b, d.rehydrate,
			storage.WithPersistentLogger(d.logger),
			storage.WithTTL(d.config.SnapshotTTL)), nil
	case storage.KindCustom:
		if d.config.CustomStrategy == nil {
			return nil, fmt.Errorf("%w: custom strategy selected without an implementation", ErrConfiguration)
		}
		return d.config.CustomStrategy, nil
	default:
		return nil, fmt.Errorf("%w: strategy %q", ErrConfiguration, kind)
	}
}

func (d *Datastore) rehydrate(key string, snap storage.Snapshot) (model.Entity, error) {
	return d.materializer.Rehydrate(key, snap)
}

// Registry returns the schema registry
func (d *Datastore) Registry() *schema.Registry { return d.registry }

// Storage returns the identity cache
func (d *Datastore) Storage() storage.Strategy { return d.storage }

// Get reads the identity cache without any network call
func (d *Datastore) Get(id string) (model.Entity, bool) {
	return d.storage.Get(id)
}

// Close releases the persistent backend, if any
func (d *Datastore) Close() error {
	if d.config.Backend != nil {
		return d.config.Backend.Close()
	}
	return nil
}

// URL builds hostURL/endpoint[/id] for a model type
func (d *Datastore) URL(modelType, id string) (string, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return "", err
	}
	return d.resourceURL(s, id), nil
}

func (d *Datastore) resourceURL(s *schema.ModelSchema, id string) string {
	host := urlbuilder.HostURL(d.config.BaseURL, d.config.Endpoint, s.HostURL(), s.APIEndpoint())
	return urlbuilder.Resource(host, s.Endpoint(), id)
}

// prepare merges the option tiers, expands the URL template and returns the merged
// options with the canonical request URL. s may be nil.
func (d *Datastore) prepare(s *schema.ModelSchema, rawURL string, call *transport.RequestOptions) (*transport.RequestOptions, string, error) {
	var modelTier *transport.RequestOptions
	if s != nil {
		modelTier = &transport.RequestOptions{Params: s.Params(), Headers: s.Headers()}
	}
	merged := d.config.Defaults.Merge(modelTier, call)

	expanded, remaining, err := urlbuilder.Expand(rawURL, merged.Params)
	if err != nil {
		return nil, "", err
	}
	merged.Params = remaining
	return merged, urlbuilder.Normalize(expanded, remaining), nil
}

// fetcher adapts the datastore to the relationship engine
type fetcher struct {
	d *Datastore
}

func (f fetcher) FetchModel(ctx context.Context, s *schema.ModelSchema, url string, opts *transport.RequestOptions) (*model.Model, error) {
	return f.d.fetchModel(ctx, s, url, opts, schema.Fixed(s))
}

func (f fetcher) FetchDocument(ctx context.Context, s *schema.ModelSchema, url string, opts *transport.RequestOptions) (*model.Document, error) {
	return f.d.fetchDocument(ctx, s, url, opts, schema.Fixed(s))
}
