// Package metadata holds the immutable schema snapshot the admission engine
// validates requests against: per-entity column definitions, primary keys,
// and resolved foreign-key pairs.
//
// A Snapshot is built once (from configuration or by introspecting
// PostgreSQL, see IntrospectSnapshot) and then only read. Hot reload goes
// through Store, which swaps the whole snapshot atomically so in-flight
// requests keep seeing a consistent view.
package metadata

import (
	"fmt"
	"sort"
)

// ColumnDefinition describes one column of an entity's backing table.
// The three booleans decide whether the column's absence from client input
// is fatal for an insert.
type ColumnDefinition struct {
	IsNullable      bool
	HasDefault      bool
	IsAutoGenerated bool
}

// SourceDefinition describes one entity's backing table: its columns and
// its primary-key column set. Instances are shared read-only across all
// concurrent requests and must never be mutated after the snapshot is
// published.
type SourceDefinition struct {
	Columns    map[string]ColumnDefinition
	PrimaryKey []string
}

// HasColumn reports whether the entity has a column with the given name.
func (sd *SourceDefinition) HasColumn(name string) bool {
	_, ok := sd.Columns[name]
	return ok
}

// IsPrimaryKey reports whether name is one of the primary-key columns.
func (sd *SourceDefinition) IsPrimaryKey(name string) bool {
	for _, pk := range sd.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the entity's column names in sorted order.
func (sd *SourceDefinition) ColumnNames() []string {
	names := make([]string, 0, len(sd.Columns))
	for name := range sd.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredColumn reports whether the named column must receive a value on
// insert: non-nullable, no default, not auto-generated.
func (sd *SourceDefinition) RequiredColumn(name string) bool {
	def, ok := sd.Columns[name]
	if !ok {
		return false
	}
	return !def.IsNullable && !def.HasDefault && !def.IsAutoGenerated
}

// ForeignKeyDefinition is a resolved foreign-key pair between two entities.
// The column lists are index-aligned: ReferencingColumns[i] takes the value
// of ReferencedColumns[i] at write time.
type ForeignKeyDefinition struct {
	ReferencingEntity  string
	ReferencedEntity   string
	ReferencingColumns []string
	ReferencedColumns  []string
}

// RelationshipDefinition describes one named relationship edge on an entity
// as declared in gateway configuration. A non-empty LinkingObject means the
// relationship goes through a junction table (many-to-many); such edges
// never propagate derivable columns in either direction.
type RelationshipDefinition struct {
	TargetEntity  string
	LinkingObject string
}

// ManyToMany reports whether the relationship goes through a junction table.
func (rd RelationshipDefinition) ManyToMany() bool {
	return rd.LinkingObject != ""
}

// Provider is the read surface the admission engine consumes.
// Implemented by Snapshot and Store.
type Provider interface {
	// GetSourceDefinition returns the entity's source definition, or false
	// when the entity is unknown.
	GetSourceDefinition(entityName string) (*SourceDefinition, bool)

	// GetForeignKeyDefinition returns the resolved foreign key for the given
	// (source, target) pair in the stated referenced/referencing orientation,
	// or false when no such key exists.
	GetForeignKeyDefinition(sourceEntity, targetEntity, referencedEntity, referencingEntity string) (*ForeignKeyDefinition, bool)

	// TryGetExposedColumnName maps a backing column name to its client-facing
	// alias. Entities without an alias mapping expose columns under their
	// backing names.
	TryGetExposedColumnName(entityName, backingColumn string) (string, bool)
}

type fkKey struct {
	source      string
	target      string
	referenced  string
	referencing string
}

// Snapshot is an immutable-once-published schema snapshot.
// Build it with the Add* methods, then hand it to a Store (or use it
// directly); after that it must only be read.
type Snapshot struct {
	sources      map[string]*SourceDefinition
	foreignKeys  map[fkKey]*ForeignKeyDefinition
	exposedNames map[string]map[string]string
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		sources:      make(map[string]*SourceDefinition),
		foreignKeys:  make(map[fkKey]*ForeignKeyDefinition),
		exposedNames: make(map[string]map[string]string),
	}
}

// AddSource registers an entity's source definition.
func (s *Snapshot) AddSource(entityName string, def *SourceDefinition) {
	s.sources[entityName] = def
}

// AddForeignKey registers a resolved foreign key. The key is indexed under
// both (referencing → referenced) and (referenced → referencing) source/
// target orientations so lookups from either side of a relationship find it.
func (s *Snapshot) AddForeignKey(fk *ForeignKeyDefinition) {
	s.foreignKeys[fkKey{
		source:      fk.ReferencingEntity,
		target:      fk.ReferencedEntity,
		referenced:  fk.ReferencedEntity,
		referencing: fk.ReferencingEntity,
	}] = fk
	s.foreignKeys[fkKey{
		source:      fk.ReferencedEntity,
		target:      fk.ReferencingEntity,
		referenced:  fk.ReferencedEntity,
		referencing: fk.ReferencingEntity,
	}] = fk
}

// AddExposedName maps a backing column to its client-facing alias.
func (s *Snapshot) AddExposedName(entityName, backingColumn, exposedName string) {
	m, ok := s.exposedNames[entityName]
	if !ok {
		m = make(map[string]string)
		s.exposedNames[entityName] = m
	}
	m[backingColumn] = exposedName
}

// GetSourceDefinition implements Provider.
func (s *Snapshot) GetSourceDefinition(entityName string) (*SourceDefinition, bool) {
	def, ok := s.sources[entityName]
	return def, ok
}

// GetForeignKeyDefinition implements Provider.
func (s *Snapshot) GetForeignKeyDefinition(sourceEntity, targetEntity, referencedEntity, referencingEntity string) (*ForeignKeyDefinition, bool) {
	fk, ok := s.foreignKeys[fkKey{
		source:      sourceEntity,
		target:      targetEntity,
		referenced:  referencedEntity,
		referencing: referencingEntity,
	}]
	return fk, ok
}

// TryGetExposedColumnName implements Provider. Columns without an explicit
// alias are exposed under their backing name when the column exists.
func (s *Snapshot) TryGetExposedColumnName(entityName, backingColumn string) (string, bool) {
	if m, ok := s.exposedNames[entityName]; ok {
		if exposed, ok := m[backingColumn]; ok {
			return exposed, true
		}
	}
	if def, ok := s.sources[entityName]; ok && def.HasColumn(backingColumn) {
		return backingColumn, true
	}
	return "", false
}

// Entities returns the snapshot's entity names in sorted order.
func (s *Snapshot) Entities() []string {
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForeignKeys returns the distinct foreign keys in the snapshot, sorted by
// referencing then referenced entity.
func (s *Snapshot) ForeignKeys() []*ForeignKeyDefinition {
	seen := make(map[*ForeignKeyDefinition]bool)
	var fks []*ForeignKeyDefinition
	for _, fk := range s.foreignKeys {
		if seen[fk] {
			continue
		}
		seen[fk] = true
		fks = append(fks, fk)
	}
	sort.Slice(fks, func(i, j int) bool {
		if fks[i].ReferencingEntity != fks[j].ReferencingEntity {
			return fks[i].ReferencingEntity < fks[j].ReferencingEntity
		}
		return fks[i].ReferencedEntity < fks[j].ReferencedEntity
	})
	return fks
}

var _ Provider = (*Snapshot)(nil)

// String describes the foreign key for diagnostics.
func (fk *ForeignKeyDefinition) String() string {
	return fmt.Sprintf("%s(%v) -> %s(%v)",
		fk.ReferencingEntity, fk.ReferencingColumns,
		fk.ReferencedEntity, fk.ReferencedColumns)
}
