package mutation

import "errors"

// Sentinel errors for nested-mutation dependency resolution. Each concrete
// failure wraps one of these with the offending entity, column, or
// relationship in the message; use the Is* helpers for programmatic
// handling. All of them are terminal for the request: validation happens
// before any write, so nothing partially applies.
var (
	// ErrInsufficientData is returned when a required column has no
	// resolution path: not supplied, not auto-generated, and not derivable
	// from a related entity's insert.
	ErrInsufficientData = errors.New("tern/mutation: insufficient data for insert")

	// ErrConflictingSource is returned when a column has two simultaneous
	// sources of truth, such as an explicit value alongside a relationship
	// that would derive it.
	ErrConflictingSource = errors.New("tern/mutation: conflicting sources for column")

	// ErrInvalidTopology is returned when a relationship edge reintroduces
	// the immediate grandparent entity in the value tree.
	ErrInvalidTopology = errors.New("tern/mutation: invalid mutation topology")

	// ErrUnknownEntity is returned when a node names an entity the schema
	// snapshot does not contain.
	ErrUnknownEntity = errors.New("tern/mutation: unknown entity")

	// ErrUnknownRelationship is returned when a nested field is not a
	// configured relationship of its entity.
	ErrUnknownRelationship = errors.New("tern/mutation: unknown relationship")

	// ErrMissingForeignKey is returned when a relationship has no resolved
	// foreign key in either direction.
	ErrMissingForeignKey = errors.New("tern/mutation: no foreign key for relationship")
)

// IsInsufficientDataErr returns true if err is or wraps ErrInsufficientData.
func IsInsufficientDataErr(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// IsConflictingSourceErr returns true if err is or wraps ErrConflictingSource.
func IsConflictingSourceErr(err error) bool {
	return errors.Is(err, ErrConflictingSource)
}

// IsInvalidTopologyErr returns true if err is or wraps ErrInvalidTopology.
func IsInvalidTopologyErr(err error) bool {
	return errors.Is(err, ErrInvalidTopology)
}
