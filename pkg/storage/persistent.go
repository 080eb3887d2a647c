package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/storage/backend"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Snapshot is the serialized form of a cached entity in a backend
type Snapshot struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Collection bool                `json:"collection"`
	Token      string              `json:"token,omitempty"`
	Header     map[string][]string `json:"header,omitempty"`
	Body       json.RawMessage     `json:"body"`
}

// HTTPHeader returns the stored response header with the token restored
func (s Snapshot) HTTPHeader() http.Header {
	header := make(http.Header, len(s.Header)+1)
	for k, v := range s.Header {
		header[k] = append([]string(nil), v...)
	}
	if s.Token != "" {
		header.Set("ETag", s.Token)
	}
	return header
}

// RehydrateFunc materializes a snapshot read back from the backend. key is the cache
// key the snapshot was stored under.
type RehydrateFunc func(key string, snap Snapshot) (model.Entity, error)

type resourceEntity interface {
	model.Entity
	Type() string
	Resource() *hal.Resource
}

// Persistent mirrors every entity saved into an inner strategy to a byte backend, so a
// later process can revalidate with the stored token and rehydrate on a miss
type Persistent struct {
	inner     Strategy
	backend   backend.Backend
	rehydrate RehydrateFunc
	logger    *zap.Logger
	timeout   time.Duration
	ttl       time.Duration

	mu   sync.Mutex
	keys map[string]map[string]struct{}
}

// PersistentOption configures a Persistent strategy
type PersistentOption func(*Persistent)

// WithPersistentLogger sets the logger used for backend failures
func WithPersistentLogger(logger *zap.Logger) PersistentOption {
	return func(p *Persistent) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTTL sets the backend time-to-live of snapshots
func WithTTL(ttl time.Duration) PersistentOption {
	return func(p *Persistent) {
		p.ttl = ttl
	}
}

// WithTimeout bounds each backend call
func WithTimeout(timeout time.Duration) PersistentOption {
	return func(p *Persistent) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// NewPersistent wraps inner. rehydrate may be nil, in which case misses stay misses.
func NewPersistent(inner Strategy, b backend.Backend, rehydrate RehydrateFunc, opts ...PersistentOption) *Persistent {
	p := &Persistent{
		inner:     inner,
		backend:   b,
		rehydrate: rehydrate,
		logger:    zap.NewNop(),
		timeout:   5 * time.Second,
		keys:      make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save stores the entity in the inner strategy and mirrors it to the backend
func (p *Persistent) Save(entity model.Entity, header http.Header, extraKeys ...string) {
	if entity == nil {
		return
	}
	p.inner.Save(entity, header, extraKeys...)
	p.mirror(entity, header, entityKeys(entity, extraKeys))
}

// SaveAll stores the entities in the inner strategy and mirrors them to the backend
func (p *Persistent) SaveAll(entities []model.Entity, allowPartialOverwrite bool) {
	p.inner.SaveAll(entities, allowPartialOverwrite)

	for _, entity := range entities {
		if entity == nil {
			continue
		}
		id := entity.UniqueIdentifier()
		if !allowPartialOverwrite {
			ctx, cancel := p.context()
			exists, err := p.backend.Exists(ctx, id)
			cancel()
			if err != nil {
				p.logger.Warn("persistent backend lookup failed", zap.String("key", id), zap.Error(err))
				continue
			}
			if exists {
				continue
			}
		}
		p.mirror(entity, nil, []string{id})
	}
}

// Get reads the inner strategy and falls back to rehydrating from the backend
func (p *Persistent) Get(id string) (model.Entity, bool) {
	if entity, ok := p.inner.Get(id); ok {
		return entity, true
	}
	if p.rehydrate == nil {
		return nil, false
	}

	snap, ok := p.load(id)
	if !ok {
		return nil, false
	}

	entity, err := p.rehydrate(id, snap)
	if err != nil {
		p.logger.Warn("failed to rehydrate snapshot", zap.String("key", id), zap.Error(err))
		return nil, false
	}
	if entity == nil {
		return nil, false
	}
	if _, ok := p.inner.Get(id); !ok {
		p.inner.Save(entity, snap.HTTPHeader(), id)
	}

	p.logger.Debug("rehydrated from backend", zap.String("key", id), zap.String("type", snap.Type))
	return entity, true
}

// Remove drops the entity from the inner strategy and every backend key it was
// mirrored under
func (p *Persistent) Remove(entity model.Entity) {
	if entity == nil {
		return
	}
	p.inner.Remove(entity)

	id := entity.UniqueIdentifier()
	p.mu.Lock()
	keys := p.keys[id]
	delete(p.keys, id)
	p.mu.Unlock()

	ctx, cancel := p.context()
	defer cancel()

	if err := p.backend.Delete(ctx, id); err != nil {
		p.logger.Warn("persistent backend delete failed", zap.String("key", id), zap.Error(err))
	}
	for key := range keys {
		if key == id {
			continue
		}
		if err := p.backend.Delete(ctx, key); err != nil {
			p.logger.Warn("persistent backend delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// EnrichRequestOptions asks the inner strategy first, then falls back to the token of
// the stored snapshot without rehydrating it
func (p *Persistent) EnrichRequestOptions(id string, opts *transport.RequestOptions) {
	if opts == nil {
		return
	}
	p.inner.EnrichRequestOptions(id, opts)
	if opts.Headers["If-None-Match"] != "" {
		return
	}
	if snap, ok := p.load(id); ok && snap.Token != "" {
		opts.SetHeader("If-None-Match", snap.Token)
	}
}

// Update delegates to the inner strategy; snapshots are refreshed on the next Save
func (p *Persistent) Update(id string, fn func(model.Entity) model.Entity) {
	p.inner.Update(id, fn)
}

// WrapFetch delegates to the inner strategy
func (p *Persistent) WrapFetch(ctx context.Context, urls []string, cached model.Entity, fresh FetchFunc, emit func(model.Entity)) error {
	return WrapFetch(ctx, p.inner, urls, cached, fresh, emit)
}

func (p *Persistent) mirror(entity model.Entity, header http.Header, keys []string) {
	re, ok := entity.(resourceEntity)
	if !ok {
		return
	}
	if m, ok := entity.(*model.Model); ok && !m.InSync() {
		p.logger.Debug("not mirroring model with local values", zap.String("id", m.UniqueIdentifier()))
		return
	}
	res := re.Resource()
	if res == nil || len(res.Raw()) == 0 {
		return
	}

	_, collection := entity.(*model.Document)
	snap := Snapshot{
		ID:         entity.UniqueIdentifier(),
		Type:       re.Type(),
		Collection: collection,
		Token:      TokenFromHeader(header),
		Body:       json.RawMessage(res.Raw()),
	}
	if len(header) > 0 {
		snap.Header = make(map[string][]string, len(header))
		for k, v := range header {
			snap.Header[k] = append([]string(nil), v...)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		p.logger.Warn("failed to encode snapshot", zap.String("id", snap.ID), zap.Error(err))
		return
	}

	ctx, cancel := p.context()
	defer cancel()

	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := p.backend.Set(ctx, key, data, p.ttl); err != nil {
			p.logger.Warn("persistent backend write failed", zap.String("key", key), zap.Error(err))
			continue
		}
		p.track(snap.ID, key)
	}
}

func (p *Persistent) track(id, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.keys[id]
	if !ok {
		set = make(map[string]struct{})
		p.keys[id] = set
	}
	set[key] = struct{}{}
}

func (p *Persistent) load(key string) (Snapshot, bool) {
	ctx, cancel := p.context()
	defer cancel()

	data, err := p.backend.Get(ctx, key)
	if err != nil {
		if !backend.IsCacheMiss(err) {
			p.logger.Warn("persistent backend read failed", zap.String("key", key), zap.Error(err))
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		p.logger.Warn("discarding unreadable snapshot", zap.String("key", key), zap.Error(err))
		return Snapshot{}, false
	}
	return snap, true
}

func (p *Persistent) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

// WrapFetch runs a cache-then-network read through s. Strategies that do not
// implement FetchWrapper emit the cached value (when present) and then the fresh one.
func WrapFetch(ctx context.Context, s Strategy, urls []string, cached model.Entity, fresh FetchFunc, emit func(model.Entity)) error {
	if w, ok := s.(FetchWrapper); ok {
		return w.WrapFetch(ctx, urls, cached, fresh, emit)
	}

	if cached != nil {
		emit(cached)
	}
	result, err := fresh(ctx)
	if err != nil {
		return err
	}
	if result != cached {
		emit(result)
	}
	return nil
}
