package model

import "errors"

var (
	// ErrUnknownProperty is returned when a property is not declared on the schema
	ErrUnknownProperty = errors.New("unknown property")

	// ErrNotAttribute is returned when an attribute accessor is used on a relation or link
	ErrNotAttribute = errors.New("property is not an attribute")

	// ErrNotRelationship is returned when a relation accessor is used on an attribute
	ErrNotRelationship = errors.New("property is not a relationship")

	// ErrRelationshipMismatch is returned when a to-one value is assigned to a to-many relation or vice versa
	ErrRelationshipMismatch = errors.New("relationship kind mismatch")
)
