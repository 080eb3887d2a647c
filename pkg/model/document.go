package model

import "github.com/conduit-lang/halstore/pkg/hal"

// Pagination is a read-only view of a collection's page metadata
type Pagination struct {
	currentPage int
	pageSize    int
	totalItems  int
	totalPages  int
}

// NewPagination builds pagination from a page block; nil yields nil
func NewPagination(page *hal.Page) *Pagination {
	if page == nil {
		return nil
	}
	return &Pagination{
		currentPage: page.Number,
		pageSize:    page.Size,
		totalItems:  page.TotalElements,
		totalPages:  page.TotalPages,
	}
}

// CurrentPage returns the zero-based page number
func (p *Pagination) CurrentPage() int { return p.currentPage }

// PageSize returns the requested page size
func (p *Pagination) PageSize() int { return p.pageSize }

// TotalItems returns the total number of items across all pages
func (p *Pagination) TotalItems() int { return p.totalItems }

// TotalPages returns the number of pages
func (p *Pagination) TotalPages() int { return p.totalPages }

// HasNext reports whether a page follows the current one
func (p *Pagination) HasNext() bool { return p.currentPage+1 < p.totalPages }

// Document is an ordered list of models plus pagination, identified by the request
// that produced it
type Document struct {
	modelType  string
	id         string
	models     []*Model
	pagination *Pagination
	resource   *hal.Resource
}

// NewDocument creates a document
func NewDocument(modelType, id string, models []*Model, pagination *Pagination, res *hal.Resource) *Document {
	return &Document{
		modelType:  modelType,
		id:         id,
		models:     models,
		pagination: pagination,
		resource:   res,
	}
}

// UniqueIdentifier returns the normalized request URL that produced the document
func (d *Document) UniqueIdentifier() string { return d.id }

// Type returns the declared model type of the items
func (d *Document) Type() string { return d.modelType }

// Models returns a copy of the item list
func (d *Document) Models() []*Model {
	result := make([]*Model, len(d.models))
	copy(result, d.models)
	return result
}

// Len returns the number of items
func (d *Document) Len() int { return len(d.models) }

// Pagination returns page metadata, nil when the response carried none
func (d *Document) Pagination() *Pagination { return d.pagination }

// Resource returns the raw backing resource
func (d *Document) Resource() *hal.Resource { return d.resource }

// Relationship is the value of a relation: a single model or a document
type Relationship struct {
	model    *Model
	document *Document
}

// One wraps a to-one value
func One(m *Model) Relationship { return Relationship{model: m} }

// Many wraps a to-many value
func Many(d *Document) Relationship { return Relationship{document: d} }

// Model returns the to-one value, nil for to-many relations
func (r Relationship) Model() *Model { return r.model }

// Document returns the to-many value, nil for to-one relations
func (r Relationship) Document() *Document { return r.document }

// IsMany reports whether the relation holds a document
func (r Relationship) IsMany() bool { return r.document != nil }

// IsZero reports whether the relation holds nothing
func (r Relationship) IsZero() bool { return r.model == nil && r.document == nil }

// Entity returns whichever value the relation holds
func (r Relationship) Entity() Entity {
	if r.document != nil {
		return r.document
	}
	if r.model != nil {
		return r.model
	}
	return nil
}
