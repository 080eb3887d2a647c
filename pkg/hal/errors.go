package hal

import "errors"

var (
	// ErrEmptyDocument is returned when a response body carries no document
	ErrEmptyDocument = errors.New("empty hypermedia document")

	// ErrMalformedDocument is returned when a document is not a valid JSON object
	ErrMalformedDocument = errors.New("malformed hypermedia document")
)
