package engine

import "fmt"

// ValidationError rejects malformed query input before any lookup runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means the geocoder had no match for the address. The
// address may simply not exist; this is distinct from the geocoder being
// unreachable.
type NotFoundError struct {
	Address string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("address not found: %s", e.Address)
}

// UpstreamError means the external geocoder could not be consulted
// (network failure, timeout, rate limit). Callers can distinguish "does
// not exist" from "could not check".
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("geocoder unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
