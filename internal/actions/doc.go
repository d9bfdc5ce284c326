// Package actions provides the core logic for Ferry's mirror operations.
// It orchestrates digest resolution, inventory rewriting, and image transfer.
//
// Key components:
//   - Update: Re-resolves every inventory image's digests and rewrites the
//     persisted inventory.
//   - Sync: Diffs each image's known digests against the destination registry
//     and transfers only what is missing.
//
// Both actions isolate failures per image: one broken image does not stop the
// rest, and any failure surfaces as a joined error so the process exits
// non-zero. Both honor a dry-run mode that performs all resolution and diff
// logic but suppresses writes and transfers.
//
// The package integrates with the inventory, resolver, and transfer packages,
// using logrus for logging operations and errors.
package actions
