package registry

import (
	"errors"
	"fmt"
)

// UserAgent is the User-Agent header value used in HTTP requests to identify
// Ferry as the client. It can be customized at build time using linker flags
// (e.g., -ldflags "-X ...UserAgent=Ferry/v1.0"). If not set during the build,
// it defaults to "Ferry/unknown".
var UserAgent = "Ferry/unknown"

// StatusError reports a non-2xx HTTP status from a registry endpoint.
//
// It preserves the status code so callers can distinguish recoverable
// statuses (a 404 or 403 on a destination-side lookup means the tag does not
// exist there yet) from fatal ones.
type StatusError struct {
	// Status is the HTTP status code the registry answered with.
	Status int
	// URL is the request URL that produced the status.
	URL string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned status %d for %s", e.Status, e.URL)
}

// StatusOf returns the HTTP status carried by err, or 0 when err does not
// wrap a StatusError.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}

	return 0
}
