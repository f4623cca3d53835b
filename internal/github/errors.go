// internal/github/errors.go
package github

import "errors"

// ErrorKind classifies a failed GraphQL exchange. All kinds share the
// *APIError type so callers can catch uniformly while logs keep the
// distinction.
type ErrorKind string

const (
	// KindUnauthorized is an HTTP 401: bad or expired token.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindForbidden is an HTTP 403: rate limited or forbidden resource.
	KindForbidden ErrorKind = "forbidden"
	// KindNotFound is an HTTP 404.
	KindNotFound ErrorKind = "not_found"
	// KindHTTP is any other non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindConnectivity is a transport-level failure: timeout, DNS,
	// connection reset.
	KindConnectivity ErrorKind = "connectivity"
	// KindProtocol means the endpoint answered 2xx but carried an
	// application-level errors list.
	KindProtocol ErrorKind = "protocol"
)

// APIError is the classified result of a failed outbound call. It carries
// no retry state: a single failed attempt is a failed call.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status when applicable, 0 otherwise
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is makes errors.Is match on kind for APIError targets.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func isKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsUnauthorized reports whether err is a 401 classification.
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }

// IsForbidden reports whether err is a 403 classification.
func IsForbidden(err error) bool { return isKind(err, KindForbidden) }

// IsNotFound reports whether err is a 404 classification.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsConnectivity reports whether err is a transport-level failure.
func IsConnectivity(err error) bool { return isKind(err, KindConnectivity) }

// IsProtocol reports whether err carries application-level GraphQL errors.
func IsProtocol(err error) bool { return isKind(err, KindProtocol) }
