package cache

import "errors"

var (
	// ErrEmptySelector is returned when an Invalidate selector names nothing:
	// no key, an empty key list, and no pattern. Rejected explicitly so a
	// caller bug never looks like a successful no-op.
	ErrEmptySelector = errors.New("cache: empty invalidation selector")

	// ErrAmbiguousSelector is returned when more than one selector field is
	// set.
	ErrAmbiguousSelector = errors.New("cache: selector must set exactly one of Key, Keys, Pattern")

	// ErrNilPopulate is returned by GetOrPopulate when populate is nil.
	ErrNilPopulate = errors.New("cache: nil populate function")
)
