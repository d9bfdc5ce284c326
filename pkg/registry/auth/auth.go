// Package auth obtains and caches bearer-token challenges for container
// registries.
//
// Each registry host is probed once per process lifetime with an anonymous
// request to /v2/; the resulting WWW-Authenticate challenge is parsed into a
// Challenge and memoized. Token fetches specialize the cached challenge's
// scope with the repository being resolved.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ferrydock/ferry/pkg/registry"
	"github.com/ferrydock/ferry/pkg/types"
)

// DefaultProbeTimeout bounds the anonymous challenge probe. A registry that
// cannot answer /v2/ quickly cannot serve digests either.
const DefaultProbeTimeout = 5 * time.Second

// Static errors for registry authentication failures.
var (
	// errExpectedChallenge indicates the registry answered the anonymous probe
	// with something other than a 401, violating the supported contract.
	errExpectedChallenge = errors.New("expected auth challenge from registry")
	// errMissingChallengeHeader indicates a 401 without challenge instructions.
	errMissingChallengeHeader = errors.New("registry did not include a challenge header")
	// errProbeFailed indicates the anonymous probe request could not complete.
	errProbeFailed = errors.New("failed to probe registry")
	// errTokenRequestFailed indicates the token endpoint request failed or
	// answered with a non-2xx status.
	errTokenRequestFailed = errors.New("token request failed")
	// errMissingToken indicates a token response without a usable token field.
	errMissingToken = errors.New("token response did not include a token")
)

// Cache memoizes one Challenge per registry host for the cache's lifetime.
//
// The first successful probe for a host wins; concurrent callers for the same
// host share a single in-flight probe rather than each hitting the registry.
// Failed probes are not cached, so a later call may retry. A Cache is an
// explicit collaborator: create one per run and discard it at run end.
type Cache struct {
	client *http.Client

	group singleflight.Group

	mu         sync.RWMutex
	challenges map[string]*Challenge
}

// NewCache creates a challenge cache probing registries with the provided
// HTTP client. A nil client gets a default with a short probe timeout.
func NewCache(client *http.Client) *Cache {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}

	return &Cache{
		client:     client,
		challenges: make(map[string]*Challenge),
	}
}

// ChallengeFor returns the cached challenge for host, probing the registry on
// first use.
//
// The probe expects exactly a 401 carrying a WWW-Authenticate header; any
// other outcome is an error surfaced to the caller, since a broken auth path
// means no digest can be resolved for that host.
func (c *Cache) ChallengeFor(ctx context.Context, host string) (*Challenge, error) {
	c.mu.RLock()
	cached, ok := c.challenges[host]
	c.mu.RUnlock()

	if ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(host, func() (any, error) {
		// Re-check under the flight: a previous flight may have populated the
		// entry between the read above and this callback.
		c.mu.RLock()
		cached, ok := c.challenges[host]
		c.mu.RUnlock()

		if ok {
			return cached, nil
		}

		challenge, err := c.probe(ctx, host)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.challenges[host] = challenge
		c.mu.Unlock()

		return challenge, nil
	})
	if err != nil {
		return nil, err
	}

	challenge, ok := result.(*Challenge)
	if !ok {
		return nil, errProbeFailed
	}

	return challenge, nil
}

// probe issues the anonymous challenge request to https://{host}/v2/ and
// parses the resulting challenge header.
func (c *Cache) probe(ctx context.Context, host string) (*Challenge, error) {
	probeURL := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/v2/",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errProbeFailed, err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", registry.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", errProbeFailed, host, err)
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	header := resp.Header.Get(ChallengeHeader)

	logrus.WithFields(logrus.Fields{
		"registry": host,
		"status":   resp.Status,
		"header":   header,
	}).Debug("Got response to challenge probe")

	if resp.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s answered %s", errExpectedChallenge, host, resp.Status)
	}

	if header == "" {
		return nil, fmt.Errorf("%w: %s", errMissingChallengeHeader, host)
	}

	challenge, err := ParseChallenge(header)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"registry": host,
		"realm":    challenge.Realm.String(),
	}).Debug("Cached auth challenge")

	return challenge, nil
}

// Client fetches repository-scoped bearer tokens using cached challenges.
type Client struct {
	cache  *Cache
	client *http.Client
}

// NewClient creates a token client on top of the provided challenge cache.
// The HTTP client is used for token endpoint requests and may carry a more
// generous timeout than the cache's probe client; nil falls back to a default.
func NewClient(cache *Cache, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}

	return &Client{cache: cache, client: client}
}

// Token obtains a bearer token scoped to the provided repository on host.
//
// The cached challenge is generic; each call specializes its scope with the
// real repository before querying the token endpoint.
func (c *Client) Token(ctx context.Context, host, repository string) (string, error) {
	challenge, err := c.cache.ChallengeFor(ctx, host)
	if err != nil {
		return "", err
	}

	tokenURL := challenge.TokenURL(repository)

	logrus.WithFields(logrus.Fields{
		"registry":   host,
		"repository": repository,
		"url":        tokenURL,
	}).Debug("Fetching bearer token")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTokenRequestFailed, err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", registry.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTokenRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return "", fmt.Errorf(
			"%w: %w",
			errTokenRequestFailed,
			&registry.StatusError{Status: resp.StatusCode, URL: tokenURL},
		)
	}

	var tokenResponse types.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("%w: %w", errTokenRequestFailed, err)
	}

	if tokenResponse.Token == "" {
		return "", fmt.Errorf("%w: %s", errMissingToken, tokenURL)
	}

	return tokenResponse.Token, nil
}
