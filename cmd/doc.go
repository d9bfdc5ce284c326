// Package cmd contains the command-line interface (CLI) definitions and
// execution logic for Ferry. It provides the root command and its update and
// sync subcommands, wiring the registry clients, inventory, and transfer
// backends together for a run.
//
// Key components:
//   - rootCmd: Root command carrying the shared mirror and logging flags.
//   - update: Subcommand that re-resolves every inventory image's digests and
//     rewrites the persisted inventory.
//   - sync: Subcommand that diffs known digests against the destination
//     registry and transfers only the missing ones.
//
// Usage examples:
//   - Run the CLI from main.go:
//     cmd.Execute()
//   - Preview a sync without moving anything:
//     ferry sync --dry-run
//
// The package integrates with the actions, registry, inventory, and flags
// packages, using Cobra for CLI parsing and logrus for logging.
package cmd
