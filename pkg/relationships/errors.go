package relationships

import "errors"

var (
	// ErrMaxDepthExceeded is returned when a path nests deeper than the engine allows
	ErrMaxDepthExceeded = errors.New("maximum relationship depth exceeded")

	// ErrUnsupportedTarget is returned when resolution targets something other than a
	// model or document
	ErrUnsupportedTarget = errors.New("unsupported resolution target")
)
