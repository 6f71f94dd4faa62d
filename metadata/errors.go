package metadata

import "errors"

// ErrCyclicReferences is returned when the snapshot's foreign keys form a
// cross-entity reference cycle, which makes dependency-ordered inserts
// impossible to schedule.
var ErrCyclicReferences = errors.New("tern/metadata: cyclic entity references")

// IsCyclicReferencesErr returns true if err is or wraps ErrCyclicReferences.
func IsCyclicReferencesErr(err error) bool {
	return errors.Is(err, ErrCyclicReferences)
}
