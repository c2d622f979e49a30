package sse

import "errors"

var (
	// ErrUnknownVariant is returned when a wire record carries a
	// discriminator this taxonomy does not know. Consumers must treat it as
	// "skip and move on", never coerce into a known shape.
	ErrUnknownVariant = errors.New("sse: unknown event variant")

	// ErrMalformedRecord is returned when a wire record is not an object
	// with exactly one discriminator key.
	ErrMalformedRecord = errors.New("sse: malformed event record")

	// ErrEmptyEvent is returned when encoding a zero-valued Event, which can
	// only arise from a programming error.
	ErrEmptyEvent = errors.New("sse: event carries no variant")
)
