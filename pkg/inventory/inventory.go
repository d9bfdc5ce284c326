// Package inventory loads and persists the durable set of images Ferry
// mirrors.
//
// The inventory is a YAML document listing (registry, repository, tag)
// triples and the digests most recently resolved for each. The on-disk form
// is canonical: images are sorted before every write so repeated updates
// produce stable diffs.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/ferrydock/ferry/pkg/types"
)

// inventoryFileMode is the permission mode for written inventory files.
const inventoryFileMode = 0o644

// Static errors for inventory operations.
var (
	// errReadInventory indicates the inventory file could not be read.
	errReadInventory = errors.New("failed to read inventory file")
	// errParseInventory indicates the inventory file is not valid YAML.
	errParseInventory = errors.New("failed to parse inventory file")
	// errInvalidImage indicates an inventory entry with a malformed reference
	// or digest.
	errInvalidImage = errors.New("invalid inventory image")
	// errRenderInventory indicates the inventory could not be marshaled.
	errRenderInventory = errors.New("failed to render inventory")
	// errWriteInventory indicates the inventory file could not be written.
	errWriteInventory = errors.New("failed to write inventory file")
)

// Image is one mirrored image: its source reference plus the digests most
// recently resolved for it.
//
// Image values are immutable in use; WithDigests returns a replacement
// rather than mutating a shared entry.
type Image struct {
	Registry   string   `yaml:"registry"`
	Repository string   `yaml:"repository"`
	Tag        string   `yaml:"tag"`
	Digests    []string `yaml:"digests"`
}

// Ref returns the image's source reference.
func (i Image) Ref() types.ImageRef {
	return types.ImageRef{
		Registry:   i.Registry,
		Repository: i.Repository,
		Tag:        i.Tag,
	}
}

// WithDigests returns a copy of the image carrying the provided digests.
// The receiver keeps its original digest list.
func (i Image) WithDigests(digests []string) Image {
	i.Digests = append([]string(nil), digests...)

	return i
}

// validate checks the image's reference and digest syntax.
func (i Image) validate() error {
	if i.Registry == "" || i.Repository == "" || i.Tag == "" {
		return fmt.Errorf(
			"%w: %q: registry, repository and tag are required",
			errInvalidImage,
			i.Ref().String(),
		)
	}

	rawRef := fmt.Sprintf("%s/%s:%s", i.Registry, i.Repository, i.Tag)
	if _, err := reference.ParseNormalizedNamed(rawRef); err != nil {
		return fmt.Errorf("%w: %q: %w", errInvalidImage, rawRef, err)
	}

	for _, d := range i.Digests {
		if _, err := digest.Parse(d); err != nil {
			return fmt.Errorf("%w: %q: %w", errInvalidImage, rawRef, err)
		}
	}

	return nil
}

// Inventory is the full set of images to mirror.
type Inventory struct {
	Images []Image `yaml:"images"`
}

// Load reads and validates the inventory at path.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadInventory, err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: %w", errParseInventory, err)
	}

	for _, image := range inv.Images {
		if err := image.validate(); err != nil {
			return nil, err
		}
	}

	return &inv, nil
}

// Sorted returns a copy of the inventory with images in canonical order:
// by registry, repository, tag, then digest list.
func (inv *Inventory) Sorted() *Inventory {
	images := make([]Image, len(inv.Images))
	copy(images, inv.Images)

	sort.SliceStable(images, func(a, b int) bool {
		return compareImages(images[a], images[b]) < 0
	})

	return &Inventory{Images: images}
}

// Render marshals the inventory into its canonical YAML document.
func (inv *Inventory) Render() ([]byte, error) {
	data, err := yaml.Marshal(inv.Sorted())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRenderInventory, err)
	}

	return data, nil
}

// Save writes the canonical inventory document to path.
func Save(path string, inv *Inventory) error {
	data, err := inv.Render()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, inventoryFileMode); err != nil {
		return fmt.Errorf("%w: %w", errWriteInventory, err)
	}

	return nil
}

// compareImages orders two images by registry, repository, tag, then by
// their digest lists element-wise.
func compareImages(a, b Image) int {
	if c := strings.Compare(a.Registry, b.Registry); c != 0 {
		return c
	}

	if c := strings.Compare(a.Repository, b.Repository); c != 0 {
		return c
	}

	if c := strings.Compare(a.Tag, b.Tag); c != 0 {
		return c
	}

	for i := 0; i < len(a.Digests) && i < len(b.Digests); i++ {
		if c := strings.Compare(a.Digests[i], b.Digests[i]); c != 0 {
			return c
		}
	}

	return len(a.Digests) - len(b.Digests)
}
