package datastore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/relationships"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// FindOne fetches hostURL/endpoint/id as a model of modelType
func (d *Datastore) FindOne(ctx context.Context, modelType, id string, opts *Options) (*model.Model, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return nil, err
	}
	return d.FetchModelWithSchema(ctx, s, d.resourceURL(s, id), opts)
}

// Find fetches the collection endpoint of modelType
func (d *Datastore) Find(ctx context.Context, modelType string, opts *Options) (*model.Document, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return nil, err
	}
	return d.FetchDocumentWithSchema(ctx, s, d.resourceURL(s, ""), opts)
}

// FetchModel fetches an arbitrary URL as a model of modelType
func (d *Datastore) FetchModel(ctx context.Context, modelType, url string, opts *Options) (*model.Model, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return nil, err
	}
	return d.FetchModelWithSchema(ctx, s, url, opts)
}

// FetchDocument fetches an arbitrary URL as a collection of modelType
func (d *Datastore) FetchDocument(ctx context.Context, modelType, url string, opts *Options) (*model.Document, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return nil, err
	}
	return d.FetchDocumentWithSchema(ctx, s, url, opts)
}

// FetchModelWithSchema fetches url as a model and resolves the requested relationships
func (d *Datastore) FetchModelWithSchema(ctx context.Context, s *schema.ModelSchema, url string, opts *Options) (*model.Model, error) {
	m, err := d.fetchModel(ctx, s, url, opts.main(), opts.selector(s))
	if err != nil {
		return nil, err
	}
	if err := d.IncludeRelationships(ctx, m, opts.include(), opts.subsequent()); err != nil {
		return nil, err
	}
	return m, nil
}

// FetchDocumentWithSchema fetches url as a collection and resolves the requested
// relationships on every item
func (d *Datastore) FetchDocumentWithSchema(ctx context.Context, s *schema.ModelSchema, url string, opts *Options) (*model.Document, error) {
	doc, err := d.fetchDocument(ctx, s, url, opts.main(), opts.selector(s))
	if err != nil {
		return nil, err
	}
	if err := d.IncludeRelationships(ctx, doc, opts.include(), opts.subsequent()); err != nil {
		return nil, err
	}
	return doc, nil
}

// IncludeRelationships resolves relationship paths on an already materialized model
// or document
func (d *Datastore) IncludeRelationships(ctx context.Context, target model.Entity, include []relationships.Descriptor, subsequent *transport.RequestOptions) error {
	if len(include) == 0 {
		return nil
	}
	return d.engine.Resolve(ctx, target, include, subsequent)
}

// Watch delivers the cached value for a model (id set) or collection (id empty) first,
// when there is one, followed by the network result unless the cache strategy reports
// it unchanged. The channel is closed when the fetch completes; a failure is delivered
// as a Result with Err set.
func (d *Datastore) Watch(ctx context.Context, modelType, id string, opts *Options) <-chan Result {
	out := make(chan Result, 2)

	send := func(r Result) {
		select {
		case out <- r:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)

		s, err := d.registry.Get(modelType)
		if err != nil {
			send(Result{Err: err})
			return
		}

		url := d.resourceURL(s, id)
		_, key, err := d.prepare(s, url, opts.main())
		if err != nil {
			send(Result{Err: err})
			return
		}

		cached, _ := d.storage.Get(key)
		fresh := func(ctx context.Context) (model.Entity, error) {
			if id == "" {
				return d.FetchDocumentWithSchema(ctx, s, url, opts)
			}
			return d.FetchModelWithSchema(ctx, s, url, opts)
		}

		err = storage.WrapFetch(ctx, d.storage, []string{key}, cached, fresh, func(e model.Entity) {
			send(Result{Entity: e})
		})
		if err != nil {
			send(Result{Err: err})
		}
	}()

	return out
}

func (d *Datastore) fetchModel(ctx context.Context, s *schema.ModelSchema, rawURL string, call *transport.RequestOptions, sel schema.Selector) (*model.Model, error) {
	entity, err := d.fetch(ctx, s, rawURL, call, sel, false)
	if err != nil {
		return nil, err
	}
	m, ok := entity.(*model.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T, not a model", ErrUnexpectedEntity, rawURL, entity)
	}
	return m, nil
}

func (d *Datastore) fetchDocument(ctx context.Context, s *schema.ModelSchema, rawURL string, call *transport.RequestOptions, sel schema.Selector) (*model.Document, error) {
	entity, err := d.fetch(ctx, s, rawURL, call, sel, true)
	if err != nil {
		return nil, err
	}
	doc, ok := entity.(*model.Document)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T, not a document", ErrUnexpectedEntity, rawURL, entity)
	}
	return doc, nil
}

func (d *Datastore) fetch(ctx context.Context, s *schema.ModelSchema, rawURL string, call *transport.RequestOptions, sel schema.Selector, collection bool) (model.Entity, error) {
	opts, key, err := d.prepare(s, rawURL, call)
	if err != nil {
		return nil, err
	}
	d.storage.EnrichRequestOptions(key, opts)

	header := opts.HTTPHeader()
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/hal+json")
	}

	d.logger.Debug("dispatching request",
		zap.String("method", transport.MethodGet),
		zap.String("url", key),
		zap.Bool("conditional", header.Get("If-None-Match") != ""))

	resp, err := d.transport.Do(ctx, &transport.Request{
		Method: transport.MethodGet,
		URL:    key,
		Header: header,
	})
	if err != nil {
		return nil, err
	}

	if resp.NotModified() {
		return d.cachedFor(key, resp.URL)
	}

	res, err := hal.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", key, err)
	}

	var extra []string
	if resp.URL != "" && resp.URL != key {
		extra = append(extra, resp.URL)
	}

	if collection {
		return d.materializer.Document(res, s, sel, resp.Header, key, extra...)
	}
	return d.materializer.Model(res, sel, resp.Header, append([]string{key}, extra...)...)
}

// cachedFor serves a 304 from the entry at the requested or the resolved URL
func (d *Datastore) cachedFor(requested, resolved string) (model.Entity, error) {
	for _, key := range []string{requested, resolved} {
		if key == "" {
			continue
		}
		if entity, ok := d.storage.Get(key); ok {
			d.logger.Debug("not modified, serving cached entry", zap.String("url", key))
			return entity, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotModified, requested)
}
