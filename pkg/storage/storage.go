// Package storage implements the identity cache: a map from canonical resource
// identifier to the materialized model or document, with pluggable strategies for
// validation and persistence.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// ErrUnknownKind is returned by ParseKind for an unrecognized strategy tag
var ErrUnknownKind = errors.New("unknown storage strategy")

// Strategy is the identity cache contract
type Strategy interface {
	// Save stores the entity under its unique identifier and every extra key.
	// header is the response that produced the entity, nil for local writes.
	Save(entity model.Entity, header http.Header, extraKeys ...string)

	// SaveAll stores every entity under its unique identifier. When
	// allowPartialOverwrite is false, identifiers that already hold an entry keep it.
	SaveAll(entities []model.Entity, allowPartialOverwrite bool)

	// Get returns the entity stored under id
	Get(id string) (model.Entity, bool)

	// Remove drops every key that holds the entity
	Remove(entity model.Entity)

	// EnrichRequestOptions attaches validation preconditions for a request to id
	EnrichRequestOptions(id string, opts *transport.RequestOptions)

	// Update runs fn on the entry at id as one critical section. fn receives nil when
	// the key is empty; returning nil deletes the key. fn must not call back into the
	// strategy.
	Update(id string, fn func(model.Entity) model.Entity)
}

// FetchFunc performs the network half of a cache-then-network read
type FetchFunc func(ctx context.Context) (model.Entity, error)

// FetchWrapper is implemented by strategies that can deliver a cached value before
// the network answers
type FetchWrapper interface {
	// WrapFetch emits cached (when not nil), runs fresh and emits its result unless
	// the strategy considers it unchanged. urls are the cache keys of the request.
	WrapFetch(ctx context.Context, urls []string, cached model.Entity, fresh FetchFunc, emit func(model.Entity)) error
}

// Kind selects a built-in strategy
type Kind string

// Strategy kinds
const (
	KindNone       Kind = "none"
	KindETag       Kind = "etag"
	KindPersistent Kind = "persistent"
	KindCustom     Kind = "custom"
)

// ParseKind parses a strategy tag; the empty tag selects KindNone
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "plain":
		return KindNone, nil
	case "etag", "conditional":
		return KindETag, nil
	case "persistent":
		return KindPersistent, nil
	case "custom":
		return KindCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	return string(k)
}
