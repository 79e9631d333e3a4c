package llm

import "errors"

var (
	// ErrInvalidInput marks inputs rejected before any network call, such as
	// empty strings or texts beyond the model's input limit. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable marks transient endpoint failures that persisted through
	// the retry budget. Callers may retry the whole operation later.
	ErrUnavailable = errors.New("service unavailable")

	// errTransient tags a single failed attempt as retryable. Internal to the
	// retry loops; surfaced to callers as ErrUnavailable once retries are
	// exhausted.
	errTransient = errors.New("transient failure")
)

// transientStatus reports whether an HTTP status from the model endpoint is
// worth retrying: rate limiting and server-side errors.
func transientStatus(code int) bool {
	return code == 429 || code >= 500
}

func errorsIsTransient(err error) bool {
	return errors.Is(err, errTransient)
}
