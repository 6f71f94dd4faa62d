package rest

import "errors"

// ErrBadRequest is the sentinel every shape-validation failure wraps.
// The concrete failure is a *BadRequestError carrying a stable Kind for
// programmatic handling alongside the human-readable message.
var ErrBadRequest = errors.New("tern/rest: bad request")

// Stable sub-kinds of ErrBadRequest.
const (
	// KindUnknownEntity: the request targets an entity the schema snapshot
	// does not contain.
	KindUnknownEntity = "unknown_entity"

	// KindUnknownField: a requested return field is not a column of the
	// entity.
	KindUnknownField = "unknown_field"

	// KindPrimaryKeyMismatch: the supplied primary-key values do not match
	// the schema's primary-key columns in count or names.
	KindPrimaryKeyMismatch = "primary_key_mismatch"

	// KindQueryStringNotAllowed: an insert carried a query string.
	KindQueryStringNotAllowed = "query_string_not_allowed"

	// KindBulkInsertUnsupported: the insert body was a JSON array.
	KindBulkInsertUnsupported = "bulk_insert_unsupported"

	// KindMalformedBody: the body was not valid JSON.
	KindMalformedBody = "malformed_body"
)

// BadRequestError is a shape-validation failure with a stable sub-kind.
type BadRequestError struct {
	Kind    string
	Message string
}

// Error implements error.
func (e *BadRequestError) Error() string {
	return "tern/rest: " + e.Message
}

// Unwrap makes every BadRequestError match ErrBadRequest via errors.Is.
func (e *BadRequestError) Unwrap() error {
	return ErrBadRequest
}

// IsBadRequestErr returns true if err is or wraps ErrBadRequest.
func IsBadRequestErr(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// BadRequestKind returns the stable sub-kind of a bad-request error, or the
// empty string for anything else.
func BadRequestKind(err error) string {
	var bre *BadRequestError
	if errors.As(err, &bre) {
		return bre.Kind
	}
	return ""
}

func badRequest(kind, message string) *BadRequestError {
	return &BadRequestError{Kind: kind, Message: message}
}
