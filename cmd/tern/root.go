package main

import (
	"github.com/spf13/cobra"

	"github.com/tern-api/tern/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "tern",
	Short: "Configuration-driven data gateway admission engine",
	Long: `tern - Configuration-driven data gateway admission engine

Tern decides whether a request against an exposed entity is admitted:
it resolves role permissions, validates request shape against the schema
snapshot, and orders nested mutations so every foreign key can be
satisfied.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupGateway = "gateway"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover tern.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupGateway, Title: "Gateway:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Gateway commands
	checkCmd.GroupID = groupGateway
	introspectCmd.GroupID = groupGateway
	simulateCmd.GroupID = groupGateway
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(introspectCmd)
	rootCmd.AddCommand(simulateCmd)

	// Utility commands
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
