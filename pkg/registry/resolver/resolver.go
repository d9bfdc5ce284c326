// Package resolver turns image tags into the per-architecture content
// digests their registry currently advertises.
//
// A resolution is always a live pair of network calls (token fetch, manifest
// fetch) plus one optional config blob fetch when the registry serves only a
// single-platform manifest. The three recognized manifest media types all
// yield the same result shape, so the content-type branch taken is invisible
// to callers.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/opencontainers/go-digest"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"

	"github.com/ferrydock/ferry/pkg/registry"
	"github.com/ferrydock/ferry/pkg/registry/auth"
	"github.com/ferrydock/ferry/pkg/types"
)

// ContentDigestHeader is the HTTP header key carrying a manifest's own digest
// on registry responses. For single-manifest responses this digest, not the
// config blob's, identifies what must be pulled and pushed later.
const ContentDigestHeader = "Docker-Content-Digest"

// Recognized manifest media types. Anything else on a manifest response is
// unsupported and fails resolution rather than being guessed at.
const (
	MediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
	MediaTypeImageIndex   = ociv1.MediaTypeImageIndex
	MediaTypeManifest     = "application/vnd.docker.distribution.manifest.v2+json"
)

// acceptHeader lists the recognized media types in preference order. Some
// registries ignore the preference and answer with a single manifest even
// when a list exists, so the response Content-Type decides the parse path.
var acceptHeader = fmt.Sprintf(
	"%s, %s, %s;q=0.9",
	MediaTypeManifestList,
	MediaTypeImageIndex,
	MediaTypeManifest,
)

// Static errors for resolution failures.
var (
	// errManifestRequestFailed indicates the manifest fetch could not complete
	// or answered with a non-2xx status.
	errManifestRequestFailed = errors.New("manifest request failed")
	// errBlobRequestFailed indicates the config blob fetch could not complete
	// or answered with a non-2xx status.
	errBlobRequestFailed = errors.New("config blob request failed")
	// errUnrecognizedMediaType indicates a manifest response outside the three
	// supported media types.
	errUnrecognizedMediaType = errors.New("unrecognized manifest media type")
	// errMissingContentDigest indicates a single-manifest response without the
	// content digest header that identifies the manifest itself.
	errMissingContentDigest = errors.New("manifest response did not include a content digest header")
	// errMalformedManifest indicates a manifest or blob body that could not be
	// decoded into the expected shape.
	errMalformedManifest = errors.New("malformed manifest body")
)

// manifestList mirrors the wire shape shared by Docker manifest lists and OCI
// image indexes: a flat enumeration of platform/digest pairs.
type manifestList struct {
	Manifests []struct {
		Digest   string `json:"digest"`
		Platform struct {
			Architecture string `json:"architecture"`
		} `json:"platform"`
	} `json:"manifests"`
}

// singleManifest mirrors the wire shape of a single-platform manifest, which
// carries no architecture of its own, only a reference to its config blob.
type singleManifest struct {
	Config struct {
		Digest string `json:"digest"`
	} `json:"config"`
}

// configBlob mirrors the part of an image config blob naming its architecture.
type configBlob struct {
	Architecture string `json:"architecture"`
}

// DigestResolver resolves an image reference to the digest entries its
// registry advertises. It is implemented by Resolver and by test fakes.
type DigestResolver interface {
	Resolve(ctx context.Context, ref types.ImageRef) ([]types.DigestEntry, error)
}

// Resolver resolves tags against registries using cached auth challenges.
type Resolver struct {
	auth   *auth.Client
	client *http.Client
}

// New creates a resolver fetching manifests and blobs with the provided HTTP
// client; nil falls back to a default client.
func New(authClient *auth.Client, client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{}
	}

	return &Resolver{auth: authClient, client: client}
}

// Resolve returns every (architecture, digest) pair the registry advertises
// for ref's tag, deduplicated by architecture.
//
// A 404 or 403 on the manifest fetch surfaces as a wrapped StatusError so
// callers can decide whether the status is tolerable (a destination tag that
// does not exist yet); every other failure is fatal for this resolution and
// is never retried here.
func (r *Resolver) Resolve(ctx context.Context, ref types.ImageRef) ([]types.DigestEntry, error) {
	token, err := r.auth.Token(ctx, ref.Registry, ref.Repository)
	if err != nil {
		return nil, err
	}

	manifestURL := url.URL{
		Scheme: "https",
		Host:   ref.Registry,
		Path:   fmt.Sprintf("/v2/%s/manifests/%s", ref.Repository, ref.Tag),
	}

	resp, err := r.get(ctx, manifestURL.String(), token, acceptHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errManifestRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf(
			"%w: %w",
			errManifestRequestFailed,
			&registry.StatusError{Status: resp.StatusCode, URL: manifestURL.String()},
		)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUnrecognizedMediaType, err)
	}

	logrus.WithFields(logrus.Fields{
		"image":      ref.String(),
		"media_type": mediaType,
	}).Debug("Got manifest response")

	switch mediaType {
	case MediaTypeManifestList, MediaTypeImageIndex:
		return entriesFromList(resp.Body)
	case MediaTypeManifest:
		return r.entriesFromManifest(ctx, ref, token, resp)
	default:
		return nil, fmt.Errorf("%w: %q", errUnrecognizedMediaType, mediaType)
	}
}

// entriesFromList reads the platform/digest pairs a manifest list or OCI
// index enumerates directly. No further network calls are needed.
func entriesFromList(body io.Reader) ([]types.DigestEntry, error) {
	var list manifestList
	if err := json.NewDecoder(body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
	}

	seen := make(map[string]struct{}, len(list.Manifests))
	entries := make([]types.DigestEntry, 0, len(list.Manifests))

	for _, manifest := range list.Manifests {
		if _, err := digest.Parse(manifest.Digest); err != nil {
			return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
		}

		// Entries are deduplicated by architecture; the first one wins.
		if _, ok := seen[manifest.Platform.Architecture]; ok {
			continue
		}

		seen[manifest.Platform.Architecture] = struct{}{}

		entries = append(entries, types.DigestEntry{
			Architecture: manifest.Platform.Architecture,
			Digest:       manifest.Digest,
		})
	}

	return entries, nil
}

// entriesFromManifest handles the single-manifest branch, which has no
// architecture field of its own.
//
// The architecture comes from a second authenticated fetch of the referenced
// config blob; the digest comes from the outer response's content digest
// header, since that is the manifest digest a later pull must use.
func (r *Resolver) entriesFromManifest(
	ctx context.Context,
	ref types.ImageRef,
	token string,
	resp *http.Response,
) ([]types.DigestEntry, error) {
	manifestDigest := resp.Header.Get(ContentDigestHeader)
	if manifestDigest == "" {
		return nil, fmt.Errorf("%w: %s", errMissingContentDigest, ref.String())
	}

	if _, err := digest.Parse(manifestDigest); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
	}

	var manifest singleManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
	}

	if _, err := digest.Parse(manifest.Config.Digest); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
	}

	blobURL := url.URL{
		Scheme: "https",
		Host:   ref.Registry,
		Path:   fmt.Sprintf("/v2/%s/blobs/%s", ref.Repository, manifest.Config.Digest),
	}

	logrus.WithFields(logrus.Fields{
		"image": ref.String(),
		"blob":  manifest.Config.Digest,
	}).Debug("Fetching config blob for architecture")

	blobResp, err := r.get(ctx, blobURL.String(), token, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBlobRequestFailed, err)
	}
	defer blobResp.Body.Close()

	if blobResp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, blobResp.Body)

		return nil, fmt.Errorf(
			"%w: %w",
			errBlobRequestFailed,
			&registry.StatusError{Status: blobResp.StatusCode, URL: blobURL.String()},
		)
	}

	var blob configBlob
	if err := json.NewDecoder(blobResp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedManifest, err)
	}

	return []types.DigestEntry{
		{Architecture: blob.Architecture, Digest: manifestDigest},
	}, nil
}

// get issues an authenticated GET against a registry endpoint.
func (r *Resolver) get(
	ctx context.Context,
	rawURL string,
	token string,
	accept string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", registry.UserAgent)

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	return r.client.Do(req)
}

// FilterArchitectures returns the entries whose architecture is in the
// allow-list, preserving resolution order.
//
// Filtering is a pure function of the allow-list and the raw resolved pairs;
// it happens after full resolution and never short-circuits it.
func FilterArchitectures(
	entries []types.DigestEntry,
	allowlist []string,
) []types.DigestEntry {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, arch := range allowlist {
		allowed[arch] = struct{}{}
	}

	filtered := make([]types.DigestEntry, 0, len(entries))

	for _, entry := range entries {
		if _, ok := allowed[entry.Architecture]; ok {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}
