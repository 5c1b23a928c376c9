package types

import "errors"

// Enquiry and roster errors.
var (
	ErrUnknownField   = errors.New("unknown field")
	ErrInvalidValue   = errors.New("invalid field value")
	ErrNegativeCount  = errors.New("traveller count must not be negative")
	ErrStateClosed    = errors.New("enquiry state is closed")
	ErrNotReady       = errors.New("enquiry is not ready to submit")
	ErrInvalidPropRef = errors.New("property reference must not be empty")
)

// Availability store lifecycle errors.
var (
	ErrDetached        = errors.New("availability store is detached")
	ErrAlreadyAttached = errors.New("availability store is already attached")
)

// PayloadError is a failure that carries a structured response body. The
// enquiry state merges a JSON object body into its own attributes.
type PayloadError interface {
	error
	Payload() []byte
}
