package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ferrydock/ferry/pkg/inventory"
	"github.com/ferrydock/ferry/pkg/registry"
	"github.com/ferrydock/ferry/pkg/registry/helpers"
	"github.com/ferrydock/ferry/pkg/registry/resolver"
	"github.com/ferrydock/ferry/pkg/transfer"
	"github.com/ferrydock/ferry/pkg/types"
)

// Errors for sync operations.
var (
	// errSyncIncomplete indicates one or more images failed to sync.
	errSyncIncomplete = errors.New("some images failed to sync")
	// errMissingDestination indicates sync was invoked without a destination
	// registry.
	errMissingDestination = errors.New("destination registry is required")
)

// SyncParams configures a destination synchronization run.
type SyncParams struct {
	// InventoryPath is the inventory file naming what to mirror.
	InventoryPath string
	// DestRegistry is the registry host images are mirrored into.
	DestRegistry string
	// DestPrefix prefixes every destination repository name.
	DestPrefix string
	// TolerateStatus lists HTTP statuses on destination lookups treated as
	// "tag not present yet" rather than failures. Permission-scoped registries
	// often answer 403 instead of 404 for repositories that do not exist.
	TolerateStatus []int
	// DryRun reports what would be synced without transferring anything.
	DryRun bool
	// Out receives dry-run output; nil defaults to stdout.
	Out io.Writer
}

// DestinationRepository returns the destination repository name for a source
// repository: the configured prefix plus the source path with slashes
// flattened to dashes.
func DestinationRepository(prefix, repository string) string {
	return prefix + strings.ReplaceAll(repository, "/", "-")
}

// Sync diffs each inventory image's known digests against what the
// destination registry currently holds for the same tag and transfers only
// the images with missing digests.
//
// Images fail independently; any failure surfaces in the returned error after
// every image has been attempted.
func Sync(
	ctx context.Context,
	res resolver.DigestResolver,
	copier transfer.Copier,
	params SyncParams,
) error {
	if params.DestRegistry == "" {
		return errMissingDestination
	}

	if params.Out == nil {
		params.Out = os.Stdout
	}

	inv, err := inventory.Load(params.InventoryPath)
	if err != nil {
		return err
	}

	var failures []error

	for _, image := range inv.Images {
		if err := syncImage(ctx, res, copier, params, image); err != nil {
			logrus.WithError(err).
				WithField("image", image.Ref().String()).
				Error("Failed to sync image")

			failures = append(failures, fmt.Errorf("%s: %w", image.Ref(), err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", errSyncIncomplete, errors.Join(failures...))
	}

	return nil
}

// syncImage mirrors one image: it resolves the destination tag's digests
// (tolerating configured "not present" statuses), diffs them against the
// image's known digests, and transfers everything when any digest is missing.
func syncImage(
	ctx context.Context,
	res resolver.DigestResolver,
	copier transfer.Copier,
	params SyncParams,
	image inventory.Image,
) error {
	destRef := types.ImageRef{
		Registry:   params.DestRegistry,
		Repository: DestinationRepository(params.DestPrefix, image.Repository),
		Tag:        image.Tag,
	}

	fields := logrus.Fields{
		"image":       image.Ref().String(),
		"destination": destRef.String(),
	}

	entries, err := res.Resolve(ctx, destRef)
	if err != nil {
		status := registry.StatusOf(err)
		if status == 0 || !slices.Contains(params.TolerateStatus, status) {
			return err
		}

		logrus.WithFields(fields).
			WithField("status", status).
			Debug("Destination tag not present yet")

		entries = nil
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[helpers.NormalizeDigest(entry.Digest)] = struct{}{}
	}

	missing := 0

	for _, d := range image.Digests {
		if _, ok := present[helpers.NormalizeDigest(d)]; !ok {
			missing++
		}
	}

	if missing == 0 {
		logrus.WithFields(fields).Debug("Destination already up to date")

		return nil
	}

	if params.DryRun {
		fmt.Fprintf(params.Out, "would sync %s\n", image.Ref())

		return nil
	}

	logrus.WithFields(fields).WithField("missing", missing).Info("Syncing image")

	// The whole digest set is re-pushed so the manifest list always covers
	// every architecture, not just the missing ones.
	target := destRef.String()
	members := make([]string, 0, len(image.Digests))

	for i, d := range image.Digests {
		src := fmt.Sprintf("%s/%s@%s", image.Registry, image.Repository, d)
		dst := fmt.Sprintf("%s-digest%d", target, i)

		if err := copier.Copy(ctx, src, dst); err != nil {
			return err
		}

		members = append(members, dst)
	}

	return copier.PushManifestList(ctx, target, members)
}
