package authorization

import "errors"

// Sentinel errors for the requirement pipeline.
//
// ErrForbidden is the only failure the transport should ever relay for a
// denied request: every requirement failure collapses into it so the
// response leaks nothing about which check failed or how the permission
// model is shaped. ErrMalformedResource is different in kind: it means the
// caller handed a requirement a resource of the wrong shape, which is a
// programming defect, not a security decision.
var (
	// ErrForbidden is the uniform authorization-denied outcome.
	ErrForbidden = errors.New("tern/authorization: forbidden")

	// ErrMalformedResource is returned when a requirement is evaluated
	// against a resource of the wrong shape for that check.
	ErrMalformedResource = errors.New("tern/authorization: malformed requirement resource")

	// ErrUnresolvedClaim is returned when a database policy references a
	// @claims token the caller's identity does not carry.
	ErrUnresolvedClaim = errors.New("tern/authorization: unresolved claim reference")
)

// IsForbiddenErr returns true if err is or wraps ErrForbidden.
func IsForbiddenErr(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsMalformedResourceErr returns true if err is or wraps ErrMalformedResource.
func IsMalformedResourceErr(err error) bool {
	return errors.Is(err, ErrMalformedResource)
}

// IsUnresolvedClaimErr returns true if err is or wraps ErrUnresolvedClaim.
func IsUnresolvedClaimErr(err error) bool {
	return errors.Is(err, ErrUnresolvedClaim)
}
