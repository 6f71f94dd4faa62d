package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tern-api/tern/config"
	"github.com/tern-api/tern/internal/cli"
	"github.com/tern-api/tern/metadata"
)

var (
	introspectGateway string
	introspectDB      string
	introspectSchema  string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Print the schema snapshot",
	Long: `Introspect the backing tables of the configured entities and print
the resulting schema snapshot: columns, primary keys, and the resolved
foreign keys between exposed entities.`,
	Example: `  # Introspect using the gateway config and database from tern.yaml
  tern introspect

  # Introspect an explicit database
  tern introspect --db postgres://localhost/mydb --schema public`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gatewayPath := cfg.ResolvedGateway(introspectGateway)

		rt, err := config.Load(gatewayPath)
		if err != nil {
			return cli.GatewayConfigError(fmt.Sprintf("loading gateway config %s", gatewayPath), err)
		}

		dsn, err := resolveDSN(introspectDB)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := pgxpool.New(ctx, metadata.ConnString(dsn))
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer pool.Close()

		schemaName := resolveString(introspectSchema, cfg.Introspect.Schema)
		snap, err := metadata.IntrospectSnapshot(ctx, pool, schemaName, rt.Tables())
		if err != nil {
			return cli.DBConnectError("introspecting schema", err)
		}
		rt.ApplyMappings(snap)

		printSnapshot(snap)
		return nil
	},
}

func init() {
	f := introspectCmd.Flags()
	f.StringVar(&introspectGateway, "gateway", "", "path to gateway configuration file")
	f.StringVar(&introspectDB, "db", "", "database URL")
	f.StringVar(&introspectSchema, "schema", "", "database schema to introspect")
}

func printSnapshot(snap *metadata.Snapshot) {
	bold := color.New(color.Bold)

	for _, entity := range snap.Entities() {
		def, _ := snap.GetSourceDefinition(entity)
		bold.Printf("%s\n", entity)
		for _, name := range def.ColumnNames() {
			col := def.Columns[name]
			var attrs []string
			if def.IsPrimaryKey(name) {
				attrs = append(attrs, "pk")
			}
			if !col.IsNullable {
				attrs = append(attrs, "not null")
			}
			if col.HasDefault {
				attrs = append(attrs, "default")
			}
			if col.IsAutoGenerated {
				attrs = append(attrs, "auto")
			}
			exposed, _ := snap.TryGetExposedColumnName(entity, name)
			label := name
			if exposed != name {
				label = fmt.Sprintf("%s (as %s)", name, exposed)
			}
			if len(attrs) > 0 {
				fmt.Printf("  %-30s %s\n", label, joinAttrs(attrs))
			} else {
				fmt.Printf("  %s\n", label)
			}
		}
		fmt.Println()
	}

	fks := snap.ForeignKeys()
	if len(fks) > 0 {
		bold.Println("Foreign keys")
		for _, fk := range fks {
			fmt.Printf("  %s\n", fk)
		}
	}
}

func joinAttrs(attrs []string) string {
	out := attrs[0]
	for _, a := range attrs[1:] {
		out += ", " + a
	}
	return out
}
