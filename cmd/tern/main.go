// Package main provides the CLI for managing tern gateway configuration.
//
// The CLI supports:
//   - check: Validate the gateway configuration, optionally against the database
//   - introspect: Print the schema snapshot built from the database
//   - simulate: Evaluate an authorization decision for an entity/role/action
//   - version: Print version information
//
// Commands that need database access (introspect, check --db) take -db or
// TERN_DATABASE_URL. check and simulate work from files alone.
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is not an error; explicit env vars still win.
	_ = godotenv.Load()

	Execute()
}
