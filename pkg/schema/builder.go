package schema

import (
	"errors"
	"fmt"
	"strings"
)

// PropertyOption configures a property while it is declared
type PropertyOption func(*Property)

// External sets the wire name of a property
func External(name string) PropertyOption {
	return func(p *Property) { p.ExternalName = name }
}

// Boxed materializes an attribute value as a model of the given type
func Boxed(modelType string) PropertyOption {
	return func(p *Property) { p.ModelType = modelType }
}

// ExcludeFromPayload keeps an attribute out of write payloads
func ExcludeFromPayload() PropertyOption {
	return func(p *Property) { p.ExcludeFromPayload = true }
}

// IncludeInPayload sends a relation in write payloads as href references
func IncludeInPayload() PropertyOption {
	return func(p *Property) { p.IncludeInPayload = true }
}

// Transform sets the read transform
func Transform(fn TransformFunc) PropertyOption {
	return func(p *Property) { p.Transform = fn }
}

// TransformBeforeSave sets the write transform
func TransformBeforeSave(fn TransformFunc) PropertyOption {
	return func(p *Property) { p.TransformBeforeSave = fn }
}

// Builder declares a model schema
type Builder struct {
	schema *ModelSchema
	errors []error
}

// New starts the declaration of a model type
func New(modelType string) *Builder {
	return &Builder{
		schema: &ModelSchema{
			typ:        modelType,
			params:     make(map[string]string),
			headers:    make(map[string]string),
			properties: make(map[string]*Property),
			external:   make(map[string]*Property),
		},
	}
}

// Endpoint sets the endpoint path, which may be a URI template such as "users{?page,size}"
func (b *Builder) Endpoint(endpoint string) *Builder {
	b.schema.endpoint = strings.Trim(endpoint, "/")
	return b
}

// HostURL overrides the datastore base URL for this model type
func (b *Builder) HostURL(url string) *Builder {
	b.schema.hostURL = strings.TrimRight(url, "/")
	return b
}

// APIEndpoint overrides the datastore API prefix for this model type
func (b *Builder) APIEndpoint(endpoint string) *Builder {
	b.schema.apiEndpoint = strings.Trim(endpoint, "/")
	return b
}

// Extends declares the parent type whose properties are inherited
func (b *Builder) Extends(parent string) *Builder {
	b.schema.parent = parent
	return b
}

// Param adds a model-level query parameter
func (b *Builder) Param(key, value string) *Builder {
	b.schema.params[key] = value
	return b
}

// Header adds a model-level request header
func (b *Builder) Header(key, value string) *Builder {
	b.schema.headers[key] = value
	return b
}

// Attribute declares a body attribute
func (b *Builder) Attribute(name string, opts ...PropertyOption) *Builder {
	return b.declare(name, KindAttribute, "", opts)
}

// HasOne declares a to-one relation
func (b *Builder) HasOne(name, modelType string, opts ...PropertyOption) *Builder {
	return b.declare(name, KindHasOne, modelType, opts)
}

// HasMany declares a to-many relation
func (b *Builder) HasMany(name, modelType string, opts ...PropertyOption) *Builder {
	return b.declare(name, KindHasMany, modelType, opts)
}

// Link declares a bare link relation
func (b *Builder) Link(name string, opts ...PropertyOption) *Builder {
	return b.declare(name, KindLink, "", opts)
}

// HeaderAttribute declares a value read from a response header
func (b *Builder) HeaderAttribute(name string, opts ...PropertyOption) *Builder {
	return b.declare(name, KindHeaderAttribute, "", opts)
}

// Property declares a fully described property
func (b *Builder) Property(p Property) *Builder {
	if p.Name == "" {
		b.errors = append(b.errors, errors.New("property name must not be empty"))
		return b
	}
	if p.ExternalName == "" {
		p.ExternalName = p.Name
	}
	if p.Kind.IsRelationship() && p.ModelType == "" {
		b.errors = append(b.errors, fmt.Errorf("relationship %s must name a model type", p.Name))
		return b
	}
	if _, exists := b.schema.properties[p.Name]; exists {
		b.errors = append(b.errors, fmt.Errorf("property %s declared twice", p.Name))
		return b
	}
	if _, exists := b.schema.external[p.ExternalName]; exists {
		b.errors = append(b.errors, fmt.Errorf("external name %s declared twice", p.ExternalName))
		return b
	}
	b.schema.add(&p)
	return b
}

func (b *Builder) declare(name string, kind PropertyKind, modelType string, opts []PropertyOption) *Builder {
	p := Property{Name: name, Kind: kind, ModelType: modelType}
	for _, opt := range opts {
		opt(&p)
	}
	return b.Property(p)
}

// Build returns the declared schema or every declaration error joined together
func (b *Builder) Build() (*ModelSchema, error) {
	if b.schema.typ == "" {
		b.errors = append(b.errors, errors.New("model type must not be empty"))
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("schema %q: %w", b.schema.typ, errors.Join(b.errors...))
	}
	return b.schema, nil
}

// MustBuild is Build for static declarations; it panics on error
func (b *Builder) MustBuild() *ModelSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
