// Package hal parses hypermedia documents that follow the HAL link-and-embed convention.
// A resource carries a _links block of named relations, an optional _embedded block of
// nested resources, an optional page block, and flat attribute fields.
package hal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	// LinksKey is the wire name of the links block
	LinksKey = "_links"
	// EmbeddedKey is the wire name of the embedded block
	EmbeddedKey = "_embedded"
	// PageKey is the wire name of the pagination block
	PageKey = "page"
	// SelfRel is the relation that identifies a resource
	SelfRel = "self"
)

// Link is a single link object
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
	Title     string `json:"title,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Relation is the value of one entry in the links block.
// HAL allows either a single link object or an array of them.
type Relation struct {
	Links   []Link
	IsArray bool
}

// First returns the first link of the relation
func (r Relation) First() (Link, bool) {
	if len(r.Links) == 0 {
		return Link{}, false
	}
	return r.Links[0], true
}

// Embedded is the value of one entry in the embedded block
type Embedded struct {
	Resources []*Resource
	IsArray   bool
}

// Page is the pagination block of a collection response
type Page struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// Resource is one parsed hypermedia document
type Resource struct {
	Links      map[string]Relation
	Embedded   map[string]Embedded
	Attributes map[string]interface{}
	Page       *Page

	raw json.RawMessage
}

// Parse decodes a hypermedia document
func Parse(data []byte) (*Resource, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	res := &Resource{
		Links:      make(map[string]Relation),
		Embedded:   make(map[string]Embedded),
		Attributes: make(map[string]interface{}),
		raw:        append(json.RawMessage(nil), data...),
	}

	for key, value := range fields {
		switch key {
		case LinksKey:
			if err := res.parseLinks(value); err != nil {
				return nil, err
			}
		case EmbeddedKey:
			if err := res.parseEmbedded(value); err != nil {
				return nil, err
			}
		case PageKey:
			var page Page
			if err := json.Unmarshal(value, &page); err != nil {
				// Not a pagination block, keep it as a plain attribute
				var attr interface{}
				if err := json.Unmarshal(value, &attr); err != nil {
					return nil, fmt.Errorf("%w: attribute %s: %v", ErrMalformedDocument, key, err)
				}
				res.Attributes[key] = attr
				continue
			}
			res.Page = &page
		default:
			var attr interface{}
			if err := json.Unmarshal(value, &attr); err != nil {
				return nil, fmt.Errorf("%w: attribute %s: %v", ErrMalformedDocument, key, err)
			}
			res.Attributes[key] = attr
		}
	}

	return res, nil
}

// FromValue builds a resource from an already decoded JSON value, such as a nested
// object attribute
func FromValue(v interface{}) (*Resource, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Parse(data)
}

func (r *Resource) parseLinks(data json.RawMessage) error {
	var links map[string]json.RawMessage
	if err := json.Unmarshal(data, &links); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, LinksKey, err)
	}

	for rel, value := range links {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []Link
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return fmt.Errorf("%w: link %s: %v", ErrMalformedDocument, rel, err)
			}
			r.Links[rel] = Relation{Links: list, IsArray: true}
			continue
		}

		var link Link
		if err := json.Unmarshal(trimmed, &link); err != nil {
			return fmt.Errorf("%w: link %s: %v", ErrMalformedDocument, rel, err)
		}
		r.Links[rel] = Relation{Links: []Link{link}}
	}
	return nil
}

func (r *Resource) parseEmbedded(data json.RawMessage) error {
	var embedded map[string]json.RawMessage
	if err := json.Unmarshal(data, &embedded); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, EmbeddedKey, err)
	}

	for rel, value := range embedded {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			continue
		}

		if trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return fmt.Errorf("%w: embedded %s: %v", ErrMalformedDocument, rel, err)
			}
			resources := make([]*Resource, 0, len(items))
			for _, item := range items {
				child, err := Parse(item)
				if err != nil {
					return fmt.Errorf("embedded %s: %w", rel, err)
				}
				resources = append(resources, child)
			}
			r.Embedded[rel] = Embedded{Resources: resources, IsArray: true}
			continue
		}

		child, err := Parse(trimmed)
		if err != nil {
			return fmt.Errorf("embedded %s: %w", rel, err)
		}
		r.Embedded[rel] = Embedded{Resources: []*Resource{child}}
	}
	return nil
}

// Raw returns the original wire bytes of the resource
func (r *Resource) Raw() []byte {
	return r.raw
}

// Link returns the first link of a relation
func (r *Resource) Link(rel string) (Link, bool) {
	relation, ok := r.Links[rel]
	if !ok {
		return Link{}, false
	}
	return relation.First()
}

// Href returns the href of the first link of a relation, or "" when absent
func (r *Resource) Href(rel string) string {
	link, _ := r.Link(rel)
	return link.Href
}

// SelfLink returns the href of the self relation
func (r *Resource) SelfLink() string {
	return r.Href(SelfRel)
}

// Attribute returns a top-level attribute value
func (r *Resource) Attribute(name string) (interface{}, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// HasEmbedded reports whether the embedded block carries the relation
func (r *Resource) HasEmbedded(rel string) bool {
	_, ok := r.Embedded[rel]
	return ok
}

// EmbeddedOne returns the embedded resource for a to-one relation
func (r *Resource) EmbeddedOne(rel string) (*Resource, bool) {
	e, ok := r.Embedded[rel]
	if !ok || len(e.Resources) == 0 {
		return nil, false
	}
	return e.Resources[0], true
}

// EmbeddedMany returns the embedded resources for a to-many relation.
// A single embedded object is returned as a one-element list.
func (r *Resource) EmbeddedMany(rel string) ([]*Resource, bool) {
	e, ok := r.Embedded[rel]
	if !ok {
		return nil, false
	}
	return e.Resources, true
}

// ListRelation finds the relation that holds the items of a collection response.
// It is the one links relation whose value is an array; when the links block has
// none, the one embedded relation whose value is an array is used instead.
func (r *Resource) ListRelation() (string, bool) {
	if rel, ok := singleArray(r.Links, func(v Relation) bool { return v.IsArray }); ok {
		return rel, true
	}
	return singleArray(r.Embedded, func(v Embedded) bool { return v.IsArray })
}

func singleArray[V any](m map[string]V, isArray func(V) bool) (string, bool) {
	var found []string
	for rel, v := range m {
		if isArray(v) {
			found = append(found, rel)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	// Deterministic pick when a document carries several array relations
	sort.Strings(found)
	return found[0], true
}
