// Package transfer moves image bytes between registries.
//
// The resolution core only decides what needs transferring; these backends
// handle the pulls, pushes, and manifest list assembly. Two implementations
// exist: one shelling out to the docker CLI, one working in-process through
// go-containerregistry.
package transfer

import (
	"context"
	"errors"
	"fmt"
)

// Backend names accepted by New.
const (
	BackendDocker = "docker"
	BackendCrane  = "crane"
)

// errUnknownBackend indicates a transfer backend name outside the supported set.
var errUnknownBackend = errors.New("unknown transfer backend")

// Copier pulls, re-tags, and pushes individual images, and assembles pushed
// single-arch images into one multi-arch manifest list.
type Copier interface {
	// Copy replicates the image at src (host/repo@digest) to dst (host/repo:tag).
	Copy(ctx context.Context, src, dst string) error
	// PushManifestList assembles the already-pushed member references into a
	// manifest list at target and pushes it.
	PushManifestList(ctx context.Context, target string, members []string) error
}

// New returns the Copier implementation named by backend. An empty backend
// selects the docker CLI.
func New(backend string) (Copier, error) {
	switch backend {
	case BackendDocker, "":
		return NewDockerCLI(""), nil
	case BackendCrane:
		return NewCrane(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, backend)
	}
}
