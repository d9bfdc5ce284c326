package types

import "fmt"

// ImageRef identifies one tag in one repository on one registry host.
//
// Equality is purely structural: two refs naming the same registry,
// repository, and tag are the same image.
type ImageRef struct {
	// Registry is the registry host name (e.g., "registry-1.docker.io").
	Registry string
	// Repository is the repository path within the registry (e.g., "library/postgres").
	Repository string
	// Tag is the tag within the repository (e.g., "14-alpine").
	Tag string
}

// String renders the reference in registry/repository:tag form.
func (r ImageRef) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// DigestEntry is one platform variant's content digest as reported by a
// registry for a resolved tag, in the format "sha256:<hex>".
type DigestEntry struct {
	// Architecture is the platform architecture (e.g., "amd64", "arm64").
	Architecture string
	// Digest is the manifest content digest for that architecture.
	Digest string
}

// ResolvedManifest pairs an ImageRef with the ordered digest entries resolved
// for its tag. Values are produced fresh on every resolution and never
// mutated; WithEntries returns a replacement.
type ResolvedManifest struct {
	// Ref is the image the entries were resolved for.
	Ref ImageRef
	// Entries are the per-architecture digests, in resolution order.
	Entries []DigestEntry
}

// WithEntries returns a copy of the manifest carrying the provided entries.
// The receiver is left untouched.
func (m ResolvedManifest) WithEntries(entries []DigestEntry) ResolvedManifest {
	m.Entries = append([]DigestEntry(nil), entries...)

	return m
}

// Digests returns the digest values of the manifest's entries, in order.
func (m ResolvedManifest) Digests() []string {
	digests := make([]string, 0, len(m.Entries))
	for _, entry := range m.Entries {
		digests = append(digests, entry.Digest)
	}

	return digests
}
