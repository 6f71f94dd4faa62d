package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IntrospectSnapshot builds a Snapshot by reading information_schema from a
// PostgreSQL database. entities maps exposed entity names to their backing
// table names; foreign keys between tables that are not mapped to an entity
// are ignored.
//
// The returned snapshot is fully materialized; the pool is not retained.
func IntrospectSnapshot(ctx context.Context, pool *pgxpool.Pool, tableSchema string, entities map[string]string) (*Snapshot, error) {
	if tableSchema == "" {
		tableSchema = "public"
	}

	snap := NewSnapshot()
	tableToEntity := make(map[string]string, len(entities))
	for entity, table := range entities {
		tableToEntity[table] = entity
	}

	for entity, table := range entities {
		def, err := introspectTable(ctx, pool, tableSchema, table)
		if err != nil {
			return nil, fmt.Errorf("introspecting table %s: %w", table, err)
		}
		snap.AddSource(entity, def)
	}

	fks, err := introspectForeignKeys(ctx, pool, tableSchema, tableToEntity)
	if err != nil {
		return nil, err
	}
	for _, fk := range fks {
		snap.AddForeignKey(fk)
	}

	return snap, nil
}

func introspectTable(ctx context.Context, pool *pgxpool.Pool, tableSchema, table string) (*SourceDefinition, error) {
	const columnsQuery = `
	SELECT
		c.column_name,
		(c.is_nullable = 'YES') AS is_nullable,
		(c.column_default IS NOT NULL) AS has_default,
		(c.is_identity = 'YES' OR c.column_default LIKE 'nextval(%') AS is_auto
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position;
	`

	rows, err := pool.Query(ctx, columnsQuery, tableSchema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	def := &SourceDefinition{Columns: make(map[string]ColumnDefinition)}
	for rows.Next() {
		var name string
		var nullable, hasDefault, auto bool
		if err := rows.Scan(&name, &nullable, &hasDefault, &auto); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		def.Columns[name] = ColumnDefinition{
			IsNullable:      nullable,
			HasDefault:      hasDefault,
			IsAutoGenerated: auto,
		}
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating columns: %w", rows.Err())
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", tableSchema, table)
	}

	const pkQuery = `
	SELECT kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	WHERE tc.table_schema = $1 AND tc.table_name = $2
		AND tc.constraint_type = 'PRIMARY KEY'
	ORDER BY kcu.ordinal_position;
	`

	pkRows, err := pool.Query(ctx, pkQuery, tableSchema, table)
	if err != nil {
		return nil, fmt.Errorf("querying primary key: %w", err)
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning primary key column: %w", err)
		}
		def.PrimaryKey = append(def.PrimaryKey, name)
	}
	if pkRows.Err() != nil {
		return nil, fmt.Errorf("iterating primary key columns: %w", pkRows.Err())
	}

	return def, nil
}

func introspectForeignKeys(ctx context.Context, pool *pgxpool.Pool, tableSchema string, tableToEntity map[string]string) ([]*ForeignKeyDefinition, error) {
	const fkQuery = `
	SELECT
		tc.constraint_name,
		kcu.table_name AS referencing_table,
		kcu.column_name AS referencing_column,
		ccu.table_name AS referenced_table,
		ccu.column_name AS referenced_column
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
		AND tc.table_schema = ccu.table_schema
	WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
	ORDER BY tc.constraint_name, kcu.ordinal_position;
	`

	rows, err := pool.Query(ctx, fkQuery, tableSchema)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	// Column pairs for a multi-column constraint arrive in ordinal order and
	// are accumulated onto the same definition.
	byConstraint := make(map[string]*ForeignKeyDefinition)
	var order []string
	for rows.Next() {
		var constraint, refingTable, refingCol, refedTable, refedCol string
		if err := rows.Scan(&constraint, &refingTable, &refingCol, &refedTable, &refedCol); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}

		refingEntity, ok := tableToEntity[refingTable]
		if !ok {
			continue
		}
		refedEntity, ok := tableToEntity[refedTable]
		if !ok {
			continue
		}

		fk, ok := byConstraint[constraint]
		if !ok {
			fk = &ForeignKeyDefinition{
				ReferencingEntity: refingEntity,
				ReferencedEntity:  refedEntity,
			}
			byConstraint[constraint] = fk
			order = append(order, constraint)
		}
		fk.ReferencingColumns = append(fk.ReferencingColumns, refingCol)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refedCol)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating foreign keys: %w", rows.Err())
	}

	fks := make([]*ForeignKeyDefinition, 0, len(order))
	for _, constraint := range order {
		fks = append(fks, byConstraint[constraint])
	}
	return fks, nil
}

// ConnString normalizes a connection string for introspection, defaulting
// the sslmode to prefer when none is present.
func ConnString(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=prefer"
	}
	return dsn + "?sslmode=prefer"
}
