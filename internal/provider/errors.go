package provider

import "errors"

var (
	// ErrUnmatchedResource means the identifier matches neither the
	// collection nor the item pattern, or the operation is not defined for
	// the kind it matched
	ErrUnmatchedResource = errors.New("unmatched resource")

	// ErrInvalidArgument means the request was rejected before any store
	// access, e.g. a missing or empty course name
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWriteFailed means the store rejected an insert, update or delete.
	// The store applied nothing.
	ErrWriteFailed = errors.New("write failed")
)
