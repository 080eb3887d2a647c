package datastore

import (
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/relationships"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// Options configures one read
type Options struct {
	// Main applies to the top-level request only
	Main *transport.RequestOptions
	// Include lists the relationship paths to resolve before the call returns
	Include []relationships.Descriptor
	// Subsequent applies to every relationship fetch made for Include
	Subsequent *transport.RequestOptions
	// Selector picks the model type per resource, for polymorphic responses
	Selector schema.Selector
}

func (o *Options) main() *transport.RequestOptions {
	if o == nil {
		return nil
	}
	return o.Main
}

func (o *Options) include() []relationships.Descriptor {
	if o == nil {
		return nil
	}
	return o.Include
}

func (o *Options) subsequent() *transport.RequestOptions {
	if o == nil {
		return nil
	}
	return o.Subsequent
}

func (o *Options) selector(s *schema.ModelSchema) schema.Selector {
	if o == nil || o.Selector == nil {
		return schema.Fixed(s)
	}
	return o.Selector
}

// UpdateOptions configures a partial update
type UpdateOptions struct {
	// Fields restricts the payload to these local property names
	Fields []string
	// Request applies to the PATCH request
	Request *transport.RequestOptions
}

// Result is one value delivered by Watch
type Result struct {
	Entity model.Entity
	Err    error
}
