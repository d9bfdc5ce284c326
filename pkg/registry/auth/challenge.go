package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ChallengeHeader is the HTTP header containing challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// ScopePlaceholder is the repository placeholder carried in a challenge's
// scope until a resolution substitutes the real repository path for it.
const ScopePlaceholder = "user/image"

// defaultScope is used when a registry's challenge omits an explicit scope.
const defaultScope = "repository:" + ScopePlaceholder + ":pull"

// Static errors for challenge parsing failures.
var (
	// errMalformedChallenge indicates a challenge header outside the supported
	// `Bearer k1="v1",k2="v2"` syntax.
	errMalformedChallenge = errors.New("malformed challenge header")
	// errMissingRealm indicates a challenge header without a realm, leaving no
	// token endpoint to authenticate against.
	errMissingRealm = errors.New("challenge header did not include a realm")
)

// Param is a single key/value pair from a parsed challenge header.
type Param struct {
	Key   string
	Value string
}

// Challenge is the parsed bearer challenge for one registry host: the token
// endpoint realm plus the remaining challenge params, in header order.
//
// A Challenge is immutable after creation; methods return derived values and
// never modify the cached params.
type Challenge struct {
	// Realm is the token endpoint URL hoisted out of the challenge params.
	Realm *url.URL
	// Params are the challenge params other than realm, preserving the order
	// they appeared in the header. A scope param is always present.
	Params []Param
}

// ParseChallenge parses a bearer challenge header of the form
// `Bearer k1="v1",k2="v2",...`.
//
// Quoted values may contain backslash-escaped characters, which are honored
// rather than naively stripped. The realm key is removed from the param list
// and becomes the token endpoint URL; a missing scope is defaulted to a
// placeholder pull scope that resolution later specializes.
func ParseChallenge(header string) (*Challenge, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("%w: expected bearer scheme in %q", errMalformedChallenge, header)
	}

	params, err := parseParams(header[len(prefix):])
	if err != nil {
		return nil, err
	}

	var realm string

	kept := make([]Param, 0, len(params))

	for _, param := range params {
		if param.Key == "realm" {
			realm = param.Value

			continue
		}

		kept = append(kept, param)
	}

	if realm == "" {
		return nil, fmt.Errorf("%w: %q", errMissingRealm, header)
	}

	realmURL, err := url.Parse(realm)
	if err != nil {
		return nil, fmt.Errorf("%w: bad realm %q: %w", errMalformedChallenge, realm, err)
	}

	if !hasParam(kept, "scope") {
		kept = append(kept, Param{Key: "scope", Value: defaultScope})
	}

	return &Challenge{Realm: realmURL, Params: kept}, nil
}

// ScopeForRepository returns the challenge params with the scope's repository
// placeholder replaced by the provided repository path. Only the scope value
// is touched; every other param passes through unchanged.
func (c *Challenge) ScopeForRepository(repository string) []Param {
	params := make([]Param, len(c.Params))
	copy(params, c.Params)

	for i, param := range params {
		if param.Key == "scope" {
			params[i].Value = strings.ReplaceAll(param.Value, ScopePlaceholder, repository)
		}
	}

	return params
}

// TokenURL builds the token endpoint URL for the provided repository,
// carrying the specialized challenge params as the query string.
func (c *Challenge) TokenURL(repository string) string {
	query := url.Values{}
	for _, param := range c.ScopeForRepository(repository) {
		query.Add(param.Key, param.Value)
	}

	tokenURL := *c.Realm
	tokenURL.RawQuery = query.Encode()

	return tokenURL.String()
}

// parseParams walks a comma-separated list of key=value segments, honoring
// quoted values so commas and escaped quotes inside them survive parsing.
func parseParams(s string) ([]Param, error) {
	var params []Param

	i := 0
	for i < len(s) {
		// Skip separators between segments.
		for i < len(s) && (s[i] == ' ' || s[i] == ',') {
			i++
		}

		if i >= len(s) {
			break
		}

		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("%w: missing '=' in segment %q", errMalformedChallenge, s[i:])
		}

		key := strings.TrimSpace(s[i : i+eq])
		if key == "" {
			return nil, fmt.Errorf("%w: empty key in segment %q", errMalformedChallenge, s[i:])
		}

		i += eq + 1

		value, next, err := parseValue(s, i, key)
		if err != nil {
			return nil, err
		}

		i = next

		params = append(params, Param{Key: key, Value: value})
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no params in %q", errMalformedChallenge, s)
	}

	return params, nil
}

// parseValue reads one param value starting at offset i, returning the value
// and the offset past it. Quoted values follow standard header-quoting rules:
// a backslash escapes the next byte.
func parseValue(s string, i int, key string) (string, int, error) {
	if i < len(s) && s[i] == '"' {
		i++

		var value strings.Builder

		for i < len(s) {
			switch s[i] {
			case '\\':
				if i+1 >= len(s) {
					return "", 0, fmt.Errorf(
						"%w: dangling escape in value for %q",
						errMalformedChallenge,
						key,
					)
				}

				value.WriteByte(s[i+1])
				i += 2
			case '"':
				return value.String(), i + 1, nil
			default:
				value.WriteByte(s[i])
				i++
			}
		}

		return "", 0, fmt.Errorf("%w: unterminated quoted value for %q", errMalformedChallenge, key)
	}

	end := strings.IndexByte(s[i:], ',')
	if end < 0 {
		return strings.TrimSpace(s[i:]), len(s), nil
	}

	return strings.TrimSpace(s[i : i+end]), i + end, nil
}

// hasParam reports whether params contains the provided key.
func hasParam(params []Param, key string) bool {
	for _, param := range params {
		if param.Key == key {
			return true
		}
	}

	return false
}
