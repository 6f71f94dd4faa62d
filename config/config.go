// Package config loads the gateway runtime configuration: which entities
// the gateway exposes, their relationships, and the per-role permissions.
// The document is YAML on disk; the loaded form is converted once into the
// immutable permission model and relationship lookup the admission engine
// reads.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Runtime is the parsed gateway configuration document.
type Runtime struct {
	Entities map[string]Entity `json:"entities"`
}

// Entity is one exposed entity: its backing table, relationship edges, and
// role permissions.
type Entity struct {
	Source        Source                  `json:"source"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Permissions   []Permission            `json:"permissions"`
	// Mappings renames backing columns to client-facing aliases.
	Mappings map[string]string `json:"mappings,omitempty"`
}

// Source names the entity's backing table.
type Source struct {
	Table string `json:"table"`
}

// Relationship is one named edge to another exposed entity. A non-empty
// LinkingObject names the junction table of a many-to-many relationship.
type Relationship struct {
	Target        string `json:"target"`
	LinkingObject string `json:"linking_object,omitempty"`
}

// Permission grants one role a list of actions on the entity.
type Permission struct {
	Role    string   `json:"role"`
	Actions []Action `json:"actions"`
}

// Action is one granted action. "*" grants every operation. A nil Fields
// allows every column; Policy is an optional row-level predicate with
// @claims.<name> tokens.
type Action struct {
	Action string  `json:"action"`
	Fields *Fields `json:"fields,omitempty"`
	Policy string  `json:"policy,omitempty"`
}

// Fields narrows an action's column allow-list: the included columns minus
// the excluded ones. An Include of ["*"] (or none at all) starts from every
// column.
type Fields struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Load reads and parses a gateway configuration file.
func Load(path string) (*Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses a gateway configuration document.
func Parse(data []byte) (*Runtime, error) {
	var rt Runtime
	if err := yaml.UnmarshalStrict(data, &rt); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(rt.Entities) == 0 {
		return nil, fmt.Errorf("%w: no entities configured", ErrInvalidConfig)
	}
	return &rt, nil
}

// Tables returns the entity-name to table-name mapping for schema
// introspection.
func (rt *Runtime) Tables() map[string]string {
	tables := make(map[string]string, len(rt.Entities))
	for name, e := range rt.Entities {
		tables[name] = e.Source.Table
	}
	return tables
}
