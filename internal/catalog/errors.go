package catalog

import "errors"

var (
	// ErrNoContinuation is returned by Invoke on a node that carries no pointer.
	ErrNoContinuation = errors.New("catalog: node has no continuation pointer")
	// ErrUnknownSeason is returned when a season number is not in the details' season map.
	ErrUnknownSeason = errors.New("catalog: unknown season")
	// ErrUnknownEpisode is returned when no episode in a season has the requested number.
	ErrUnknownEpisode = errors.New("catalog: unknown episode")
	// ErrUnknownShow is returned by ShowByID when the service does not know the id.
	ErrUnknownShow = errors.New("catalog: unknown show")
	// ErrAuthenticationFailed is returned when the login response carries an error marker.
	ErrAuthenticationFailed = errors.New("catalog: authentication failed")
	// ErrLoginRequired is returned by session-only operations before Login succeeds.
	ErrLoginRequired = errors.New("catalog: must be logged in")
	// ErrNotFound is how a Transport reports that the requested resource does
	// not exist. Transports may instead return an error with a NotFound() bool
	// method; see isNotFound.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUnknownResponse marks a response whose shape does not match what the operation expects.
	ErrUnknownResponse = errors.New("catalog: unknown response")
)

// isNotFound reports whether a transport error means the resource is missing.
func isNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}
