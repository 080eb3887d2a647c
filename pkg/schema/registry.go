package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/conduit-lang/halstore/pkg/hal"
)

// ErrModelNotRegistered is returned when a type tag has no registered schema
var ErrModelNotRegistered = errors.New("model type not registered")

// Registry holds every registered model schema
type Registry struct {
	schemas map[string]*ModelSchema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*ModelSchema),
	}
}

// Register resolves inheritance and stores the schema.
// A parent type must be registered before its children.
func (r *Registry) Register(s *ModelSchema) error {
	if s == nil {
		return errors.New("cannot register a nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.typ]; exists {
		return fmt.Errorf("model type %s is already registered", s.typ)
	}

	resolved := s
	if s.parent != "" {
		parent, ok := r.schemas[s.parent]
		if !ok {
			return fmt.Errorf("model type %s extends %s: %w", s.typ, s.parent, notRegistered(s.parent))
		}
		resolved = s.merge(parent)
	}

	r.schemas[s.typ] = resolved
	return nil
}

// MustRegister registers every schema and panics on the first error
func (r *Registry) MustRegister(schemas ...*ModelSchema) *Registry {
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns the resolved schema for a type tag
func (r *Registry) Get(modelType string) (*ModelSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[modelType]
	if !ok {
		return nil, notRegistered(modelType)
	}
	return s, nil
}

// MustGet returns the resolved schema for a type tag and panics when it is missing
func (r *Registry) MustGet(modelType string) *ModelSchema {
	s, err := r.Get(modelType)
	if err != nil {
		panic(err)
	}
	return s
}

// Types returns every registered type tag, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.schemas)
}

// Selector picks the model schema for a resource
type Selector func(res *hal.Resource) (*ModelSchema, error)

// Fixed always selects s
func Fixed(s *ModelSchema) Selector {
	return func(*hal.Resource) (*ModelSchema, error) { return s, nil }
}

// SelectByAttribute selects the schema named by a type-tag attribute of the resource.
// Resources without the attribute fall back to fallback when it is not nil.
func (r *Registry) SelectByAttribute(attribute string, fallback *ModelSchema) Selector {
	return func(res *hal.Resource) (*ModelSchema, error) {
		v, ok := res.Attribute(attribute)
		tag, isString := v.(string)
		if !ok || !isString || tag == "" {
			if fallback != nil {
				return fallback, nil
			}
			return nil, fmt.Errorf("resource has no %q type attribute: %w", attribute, ErrModelNotRegistered)
		}
		return r.Get(tag)
	}
}

func notRegistered(modelType string) error {
	return fmt.Errorf("%w: no schema for type %q, register it with Registry.Register before use",
		ErrModelNotRegistered, modelType)
}
