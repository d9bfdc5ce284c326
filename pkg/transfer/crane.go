package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	gcrtypes "github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/sirupsen/logrus"
)

// Static errors for crane transfers.
var (
	// errCopyFailed indicates a registry-to-registry copy failed.
	errCopyFailed = errors.New("image copy failed")
	// errBadReference indicates a reference string could not be parsed.
	errBadReference = errors.New("failed to parse image reference")
	// errIndexPushFailed indicates the assembled manifest list could not be
	// built or pushed.
	errIndexPushFailed = errors.New("manifest list push failed")
)

// Crane moves images in-process using go-containerregistry, avoiding the
// docker daemon dependency. Credentials come from the default keychain, the
// same config the docker CLI reads.
type Crane struct{}

// NewCrane creates a crane-backed transfer tool.
func NewCrane() *Crane {
	return &Crane{}
}

// Copy replicates src to dst registry-to-registry without materializing the
// image locally.
func (c *Crane) Copy(ctx context.Context, src, dst string) error {
	logrus.WithFields(logrus.Fields{
		"src": src,
		"dst": dst,
	}).Debug("Copying image")

	if err := crane.Copy(src, dst, crane.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", errCopyFailed, src, dst, err)
	}

	return nil
}

// PushManifestList fetches each member image, assembles them into one
// manifest list describing every platform, and pushes it to target.
func (c *Crane) PushManifestList(ctx context.Context, target string, members []string) error {
	targetRef, err := name.ParseReference(target)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errBadReference, target, err)
	}

	options := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	}

	addenda := make([]mutate.IndexAddendum, 0, len(members))

	for _, member := range members {
		memberRef, err := name.ParseReference(member)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", errBadReference, member, err)
		}

		img, err := remote.Image(memberRef, options...)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errIndexPushFailed, member, err)
		}

		cfg, err := img.ConfigFile()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errIndexPushFailed, member, err)
		}

		addenda = append(addenda, mutate.IndexAddendum{
			Add: img,
			Descriptor: v1.Descriptor{
				Platform: &v1.Platform{
					OS:           cfg.OS,
					Architecture: cfg.Architecture,
					Variant:      cfg.Variant,
				},
			},
		})
	}

	index := mutate.AppendManifests(empty.Index, addenda...)
	// Match the media type "docker manifest push" would produce.
	index = mutate.IndexMediaType(index, gcrtypes.DockerManifestList)

	logrus.WithFields(logrus.Fields{
		"target":  target,
		"members": len(members),
	}).Debug("Pushing manifest list")

	if err := remote.WriteIndex(targetRef, index, options...); err != nil {
		return fmt.Errorf("%w: %s: %w", errIndexPushFailed, target, err)
	}

	return nil
}
