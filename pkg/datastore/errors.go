package datastore

import "errors"

var (
	// ErrConfiguration is returned by New for an unusable configuration
	ErrConfiguration = errors.New("invalid datastore configuration")

	// ErrUnsupportedMethod is returned by Request for a verb the datastore cannot dispatch
	ErrUnsupportedMethod = errors.New("unsupported request method")

	// ErrNotModified is returned when the server answers 304 and nothing is cached for the request
	ErrNotModified = errors.New("not modified and no cached entry")

	// ErrNotPersisted is returned when an operation needs a model's self link and it has none
	ErrNotPersisted = errors.New("model has not been persisted")

	// ErrUnexpectedEntity is returned when a cache key holds a document where a model was
	// expected, or the reverse
	ErrUnexpectedEntity = errors.New("unexpected cached entity")
)
