package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ferrydock/ferry/pkg/inventory"
	"github.com/ferrydock/ferry/pkg/registry/helpers"
	"github.com/ferrydock/ferry/pkg/registry/resolver"
	"github.com/ferrydock/ferry/pkg/types"
)

// Errors for update operations.
var (
	// errUpdateIncomplete indicates one or more images failed to update.
	errUpdateIncomplete = errors.New("some images failed to update")
)

// UpdateParams configures an inventory refresh.
type UpdateParams struct {
	// InventoryPath is the inventory file to read and rewrite.
	InventoryPath string
	// Architectures is the allow-list applied to resolved digests.
	Architectures []string
	// DryRun prints the would-be inventory instead of writing it.
	DryRun bool
	// Out receives dry-run output; nil defaults to stdout.
	Out io.Writer
}

// sourceRef returns the image's reference with its registry mapped to the
// host the distribution endpoint actually answers on, so inventory entries
// may say "docker.io" and still resolve.
func sourceRef(image inventory.Image) (types.ImageRef, error) {
	ref := image.Ref()

	address, err := helpers.GetRegistryAddress(
		fmt.Sprintf("%s/%s:%s", image.Registry, image.Repository, image.Tag),
	)
	if err != nil {
		return ref, err
	}

	ref.Registry = address

	return ref, nil
}

// Update re-resolves every inventory image's digests and rewrites the
// inventory file with the result.
//
// Images fail independently: a failed resolution keeps the image's previous
// digests, logs the failure, and lets the remaining images proceed. If any
// image failed, the rewritten inventory still reflects the successes and the
// returned error reports the failures.
func Update(ctx context.Context, res resolver.DigestResolver, params UpdateParams) error {
	out := params.Out
	if out == nil {
		out = os.Stdout
	}

	inv, err := inventory.Load(params.InventoryPath)
	if err != nil {
		return err
	}

	var failures []error

	images := make([]inventory.Image, 0, len(inv.Images))

	for _, image := range inv.Images {
		fields := logrus.Fields{"image": image.Ref().String()}
		logrus.WithFields(fields).Info("Updating image digests")

		ref, err := sourceRef(image)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Error("Failed to parse image reference")

			failures = append(failures, fmt.Errorf("%s: %w", image.Ref(), err))
			images = append(images, image)

			continue
		}

		entries, err := res.Resolve(ctx, ref)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Error("Failed to resolve image")

			failures = append(failures, fmt.Errorf("%s: %w", image.Ref(), err))
			// Keep the previous digests for the failed image.
			images = append(images, image)

			continue
		}

		manifest := types.ResolvedManifest{Ref: image.Ref()}.
			WithEntries(resolver.FilterArchitectures(entries, params.Architectures))

		logrus.WithFields(fields).
			WithField("digests", len(manifest.Entries)).
			Debug("Resolved image digests")

		images = append(images, image.WithDigests(manifest.Digests()))
	}

	next := &inventory.Inventory{Images: images}

	if params.DryRun {
		rendered, err := next.Render()
		if err != nil {
			return err
		}

		if _, err := out.Write(rendered); err != nil {
			return fmt.Errorf("failed to write dry-run output: %w", err)
		}
	} else if err := inventory.Save(params.InventoryPath, next); err != nil {
		return err
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", errUpdateIncomplete, errors.Join(failures...))
	}

	return nil
}
