// Package schema describes model types: their endpoints, attributes, relationships,
// link-only fields and header-derived fields. Schemas are built once, registered, and
// never mutated afterwards.
package schema

import (
	"fmt"
	"sort"
)

// PropertyKind represents the kind of a schema property
type PropertyKind int

const (
	// KindAttribute is a scalar or boxed value read from the resource body
	KindAttribute PropertyKind = iota
	// KindHasOne is a single related model resolved through a link
	KindHasOne
	// KindHasMany is a related document resolved through a link
	KindHasMany
	// KindLink is a bare relation with no materialization
	KindLink
	// KindHeaderAttribute is a value read from a response header
	KindHeaderAttribute
)

// String returns the string representation of the property kind
func (k PropertyKind) String() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindHasOne:
		return "has_one"
	case KindHasMany:
		return "has_many"
	case KindLink:
		return "link"
	case KindHeaderAttribute:
		return "header_attribute"
	default:
		return "unknown"
	}
}

// ParsePropertyKind converts a string to a PropertyKind
func ParsePropertyKind(s string) (PropertyKind, error) {
	switch s {
	case "attribute", "":
		return KindAttribute, nil
	case "has_one":
		return KindHasOne, nil
	case "has_many":
		return KindHasMany, nil
	case "link":
		return KindLink, nil
	case "header_attribute", "header":
		return KindHeaderAttribute, nil
	default:
		return 0, fmt.Errorf("unknown property kind: %s", s)
	}
}

// IsRelationship returns true for to-one and to-many relations
func (k PropertyKind) IsRelationship() bool {
	return k == KindHasOne || k == KindHasMany
}

// TransformFunc converts a property value between its wire and local form
type TransformFunc func(value interface{}) interface{}

// Property describes one declared property of a model type
type Property struct {
	// Name is the local property name
	Name string
	// ExternalName is the wire name, defaults to Name
	ExternalName string
	Kind         PropertyKind
	// ModelType is the related model type for relations, or the boxed type for attributes
	ModelType string

	// ExcludeFromPayload drops an attribute from write payloads
	ExcludeFromPayload bool
	// IncludeInPayload adds a relation to write payloads as href references
	IncludeInPayload bool

	// Transform runs on read (wire -> local)
	Transform TransformFunc
	// TransformBeforeSave runs on write (local -> wire)
	TransformBeforeSave TransformFunc
}

// ModelSchema is the resolved, read-only description of a model type
type ModelSchema struct {
	typ         string
	endpoint    string
	hostURL     string
	apiEndpoint string
	parent      string
	params      map[string]string
	headers     map[string]string

	properties map[string]*Property
	external   map[string]*Property
	order      []string
}

// Type returns the type tag
func (s *ModelSchema) Type() string { return s.typ }

// Endpoint returns the endpoint path or URI template relative to the host URL
func (s *ModelSchema) Endpoint() string { return s.endpoint }

// HostURL returns the model-specific base URL override, if any
func (s *ModelSchema) HostURL() string { return s.hostURL }

// APIEndpoint returns the model-specific API prefix override, if any
func (s *ModelSchema) APIEndpoint() string { return s.apiEndpoint }

// Parent returns the type this schema extends
func (s *ModelSchema) Parent() string { return s.parent }

// Params returns a copy of the model-level query parameters
func (s *ModelSchema) Params() map[string]string { return copyStrings(s.params) }

// Headers returns a copy of the model-level request headers
func (s *ModelSchema) Headers() map[string]string { return copyStrings(s.headers) }

// Property looks up a property by local name
func (s *ModelSchema) Property(name string) (Property, bool) {
	p, ok := s.properties[name]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// PropertyByExternalName looks up a property by wire name
func (s *ModelSchema) PropertyByExternalName(name string) (Property, bool) {
	p, ok := s.external[name]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// Properties returns all properties in declaration order, inherited ones first
func (s *ModelSchema) Properties() []Property {
	result := make([]Property, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, *s.properties[name])
	}
	return result
}

// PropertiesOfKind returns the properties of the given kinds in declaration order
func (s *ModelSchema) PropertiesOfKind(kinds ...PropertyKind) []Property {
	var result []Property
	for _, name := range s.order {
		p := s.properties[name]
		for _, k := range kinds {
			if p.Kind == k {
				result = append(result, *p)
				break
			}
		}
	}
	return result
}

// Relationships returns the to-one and to-many properties
func (s *ModelSchema) Relationships() []Property {
	return s.PropertiesOfKind(KindHasOne, KindHasMany)
}

// merge returns a new schema holding the parent's table overridden by s
func (s *ModelSchema) merge(parent *ModelSchema) *ModelSchema {
	merged := &ModelSchema{
		typ:         s.typ,
		endpoint:    firstNonEmpty(s.endpoint, parent.endpoint),
		hostURL:     firstNonEmpty(s.hostURL, parent.hostURL),
		apiEndpoint: firstNonEmpty(s.apiEndpoint, parent.apiEndpoint),
		parent:      s.parent,
		params:      mergeStrings(parent.params, s.params),
		headers:     mergeStrings(parent.headers, s.headers),
		properties:  make(map[string]*Property),
		external:    make(map[string]*Property),
	}

	for _, name := range parent.order {
		merged.add(parent.properties[name])
	}
	for _, name := range s.order {
		merged.add(s.properties[name])
	}
	return merged
}

// add inserts or overrides a property, keeping the first declaration position
func (s *ModelSchema) add(p *Property) {
	cp := *p
	if old, exists := s.properties[cp.Name]; exists {
		delete(s.external, old.ExternalName)
	} else {
		s.order = append(s.order, cp.Name)
	}
	s.properties[cp.Name] = &cp
	s.external[cp.ExternalName] = &cp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyStrings(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func mergeStrings(base, over map[string]string) map[string]string {
	result := copyStrings(base)
	for k, v := range over {
		result[k] = v
	}
	return result
}

// sortedKeys is used to produce stable error messages
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
