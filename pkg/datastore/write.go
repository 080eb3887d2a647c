package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Create builds a new local model from attribute values keyed by local property name
// and caches it under its synthetic identifier
func (d *Datastore) Create(modelType string, data map[string]interface{}) (*model.Model, error) {
	s, err := d.registry.Get(modelType)
	if err != nil {
		return nil, err
	}
	m := model.NewWithData(s, d.storage, data)
	d.storage.Save(m, nil)
	return m, nil
}

// Save writes the full payload: POST to the collection endpoint for a new model, PUT to
// its self link otherwise
func (d *Datastore) Save(ctx context.Context, m *model.Model, opts *transport.RequestOptions) error {
	method, url := transport.MethodPut, m.SelfLink()
	if !m.IsPersisted() {
		method, url = transport.MethodPost, d.resourceURL(m.Schema(), "")
	}
	return d.write(ctx, m, method, url, m.Payload(), opts)
}

// Update sends a PATCH holding only the changed attributes, restricted to opts.Fields
// when set. An empty payload is still sent.
func (d *Datastore) Update(ctx context.Context, m *model.Model, opts *UpdateOptions) error {
	if !m.IsPersisted() {
		return fmt.Errorf("%w: cannot update %s", ErrNotPersisted, m.UniqueIdentifier())
	}

	var (
		fields []string
		reqOpt *transport.RequestOptions
	)
	if opts != nil {
		fields, reqOpt = opts.Fields, opts.Request
	}
	return d.write(ctx, m, transport.MethodPatch, m.SelfLink(), m.ChangedPayload(fields...), reqOpt)
}

// Delete issues a DELETE to the model's self link and drops it from the cache.
// A model that was never persisted is only dropped from the cache.
func (d *Datastore) Delete(ctx context.Context, m *model.Model, opts *transport.RequestOptions) error {
	if m.IsPersisted() {
		if _, err := d.Request(ctx, transport.MethodDelete, m.SelfLink(), nil, d.withModelTier(m, opts)); err != nil {
			return err
		}
	}
	d.storage.Remove(m)
	return nil
}

// Request issues any supported verb against url. Unsupported verbs fail before any
// network call.
func (d *Datastore) Request(ctx context.Context, method, url string, body []byte, opts *transport.RequestOptions) (*transport.Response, error) {
	method = strings.ToUpper(method)
	if !transport.IsSupportedMethod(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	merged, key, err := d.prepare(nil, url, opts)
	if err != nil {
		return nil, err
	}

	header := merged.HTTPHeader()
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/hal+json")
	}
	if len(body) > 0 && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	d.logger.Debug("dispatching request", zap.String("method", method), zap.String("url", key))

	return d.transport.Do(ctx, &transport.Request{
		Method: method,
		URL:    key,
		Header: header,
		Body:   body,
	})
}

func (d *Datastore) write(ctx context.Context, m *model.Model, method, url string, payload map[string]interface{}, opts *transport.RequestOptions) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", m.Type(), err)
	}

	resp, err := d.Request(ctx, method, url, body, d.withModelTier(m, opts))
	if err != nil {
		return err
	}
	d.applyWriteResponse(m, resp)
	return nil
}

// applyWriteResponse fixes the model's identity from the body self link or the Location
// header, re-keys it in the cache and resets change tracking. A body carrying attributes
// repopulates the model and is cached with the response's validation token; without one
// the model is cached with no token.
func (d *Datastore) applyWriteResponse(m *model.Model, resp *transport.Response) {
	var res *hal.Resource
	if len(resp.Body) > 0 {
		parsed, err := hal.Parse(resp.Body)
		switch {
		case err == nil:
			res = parsed
		case errors.Is(err, hal.ErrEmptyDocument):
		default:
			d.logger.Warn("ignoring unreadable write response body", zap.Error(err))
		}
	}

	id := ""
	if res != nil {
		id = res.SelfLink()
	}
	if id == "" {
		id = resp.Location()
	}

	if previous, changed := m.AssignSelfLink(id); changed {
		d.logger.Debug("model persisted",
			zap.String("type", m.Type()),
			zap.String("previous", previous),
			zap.String("id", id))
	}

	header := http.Header(nil)
	if res != nil && len(res.Attributes) > 0 {
		if err := d.materializer.Refresh(m, res, resp.Header); err != nil {
			d.logger.Warn("keeping local values after write", zap.String("id", id), zap.Error(err))
		} else {
			header = resp.Header
		}
	}

	d.storage.Remove(m)
	m.MarkSaved()
	d.storage.Save(m, header)
}

// withModelTier layers the model's schema headers and params under the call options
func (d *Datastore) withModelTier(m *model.Model, opts *transport.RequestOptions) *transport.RequestOptions {
	s := m.Schema()
	tier := &transport.RequestOptions{Params: s.Params(), Headers: s.Headers()}
	return tier.Merge(opts)
}
