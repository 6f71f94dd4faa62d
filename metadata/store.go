package metadata

import "sync/atomic"

// Store publishes a Snapshot to concurrent readers and supports hot reload
// by atomic replacement. Readers never lock: a request that started against
// the old snapshot keeps using it until it finishes, and a swap is never
// partially visible.
//
// Store implements Provider by delegating every lookup to the current
// snapshot, so it can be handed directly to the resolver and validators.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store publishing the given snapshot.
func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.current.Store(s)
	return st
}

// Load returns the current snapshot.
func (st *Store) Load() *Snapshot {
	return st.current.Load()
}

// Swap atomically replaces the published snapshot.
func (st *Store) Swap(s *Snapshot) {
	st.current.Store(s)
}

// GetSourceDefinition implements Provider.
func (st *Store) GetSourceDefinition(entityName string) (*SourceDefinition, bool) {
	return st.Load().GetSourceDefinition(entityName)
}

// GetForeignKeyDefinition implements Provider.
func (st *Store) GetForeignKeyDefinition(sourceEntity, targetEntity, referencedEntity, referencingEntity string) (*ForeignKeyDefinition, bool) {
	return st.Load().GetForeignKeyDefinition(sourceEntity, targetEntity, referencedEntity, referencingEntity)
}

// TryGetExposedColumnName implements Provider.
func (st *Store) TryGetExposedColumnName(entityName, backingColumn string) (string, bool) {
	return st.Load().TryGetExposedColumnName(entityName, backingColumn)
}

var _ Provider = (*Store)(nil)
