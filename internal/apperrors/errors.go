package apperrors

import "errors"

// ErrNotFound indicates that a referenced sale, variant or product does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState indicates an operation not permitted in the record's current state,
// such as cancelling an already-cancelled sale.
var ErrInvalidState = errors.New("invalid state")

// ErrPersistence indicates that the underlying store rejected a read or write.
var ErrPersistence = errors.New("persistence failure")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")
