package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tern-api/tern/config"
	"github.com/tern-api/tern/internal/cli"
	"github.com/tern-api/tern/metadata"
)

var (
	checkGateway string
	checkDB      string
	checkWithDB  bool
	checkSchema  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate gateway configuration",
	Long: `Validate the gateway configuration document: action names parse,
relationship targets exist, roles are not granted twice, and column
clauses are resolvable.

With --db the backing tables are introspected and the configuration is
also checked against the live schema, including a foreign-key cycle
check over the exposed entities.`,
	Example: `  # Validate a gateway configuration file
  tern check --gateway tern-gateway.yaml

  # Validate against the live database schema
  tern check --gateway tern-gateway.yaml --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gatewayPath := cfg.ResolvedGateway(checkGateway)
		withDB := resolveBool(checkWithDB, cfg.Check.WithDB) || checkDB != ""

		rt, err := config.Load(gatewayPath)
		if err != nil {
			return cli.GatewayConfigError(fmt.Sprintf("loading gateway config %s", gatewayPath), err)
		}

		errs := rt.Validate()
		if _, err := rt.PermissionModel(); err != nil {
			errs = append(errs, err)
		}

		if withDB {
			dbErrs, err := checkAgainstDatabase(cmd.Context(), rt)
			if err != nil {
				return err
			}
			errs = append(errs, dbErrs...)
		}

		if len(errs) > 0 {
			red := color.New(color.FgRed)
			for _, e := range errs {
				red.Fprintf(cmd.ErrOrStderr(), "  ✗ %v\n", e)
			}
			return cli.GatewayConfigError(fmt.Sprintf("%d problem(s) found in %s", len(errs), gatewayPath), nil)
		}

		if !quiet {
			green := color.New(color.FgGreen)
			green.Printf("✓ %s is valid (%d entities)\n", gatewayPath, len(rt.Entities))
		}
		return nil
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkGateway, "gateway", "", "path to gateway configuration file")
	f.StringVar(&checkDB, "db", "", "database URL")
	f.BoolVar(&checkWithDB, "with-db", false, "also check against the live database schema")
	f.StringVar(&checkSchema, "schema", "", "database schema to introspect")
}

// checkAgainstDatabase introspects the configured tables and reports
// configuration problems only the live schema can reveal: missing tables,
// aliased columns that do not exist, and foreign-key cycles.
func checkAgainstDatabase(ctx context.Context, rt *config.Runtime) ([]error, error) {
	dsn, err := resolveDSN(checkDB)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, metadata.ConnString(dsn))
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	defer pool.Close()

	schemaName := resolveString(checkSchema, cfg.Introspect.Schema)
	snap, err := metadata.IntrospectSnapshot(ctx, pool, schemaName, rt.Tables())
	if err != nil {
		return nil, cli.DBConnectError("introspecting schema", err)
	}
	rt.ApplyMappings(snap)

	var errs []error
	for entityName, entity := range rt.Entities {
		def, ok := snap.GetSourceDefinition(entityName)
		if !ok {
			errs = append(errs, fmt.Errorf("entity %q: table %q not found", entityName, entity.Source.Table))
			continue
		}
		for backing := range entity.Mappings {
			if !def.HasColumn(backing) {
				errs = append(errs, fmt.Errorf("entity %q: mapped column %q does not exist", entityName, backing))
			}
		}
	}

	if err := metadata.DetectReferenceCycles(snap); err != nil {
		errs = append(errs, err)
	}

	return errs, nil
}

// resolveDSN resolves the database connection string: flag > config.
func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("resolving database connection", err)
	}
	return dsn, nil
}
