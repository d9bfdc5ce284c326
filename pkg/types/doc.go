// Package types defines the shared value types used across Ferry's registry,
// inventory, and action packages.
//
// Key components:
//   - ImageRef: Identifies one tag in one repository on one registry host.
//   - DigestEntry: One platform variant's content digest for a resolved tag.
//   - ResolvedManifest: An ImageRef plus the digests resolved for it.
//   - TokenResponse: The JSON body returned by a registry token endpoint.
//
// All values are treated as immutable; updates produce replacements rather
// than mutating shared state.
package types
