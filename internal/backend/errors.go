package backend

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a body that is not an envelope, such as a proxy
// error page. The backend never answered, so it counts as a transport failure.
var ErrMalformedResponse = errors.New("response is not a valid envelope")

// APIError is a domain-level failure: the backend answered with an envelope
// carrying a non-zero EC or a non-2xx status.
type APIError struct {
	Collection string
	Method     string
	Status     int
	Code       int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s /%s: backend returned EC=%d (status %d): %s",
		e.Method, e.Collection, e.Code, e.Status, e.Message)
}

// IsDomainError reports whether err carries an *APIError, as opposed to a
// transport failure.
func IsDomainError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsTransportError reports whether err is a failure that never produced a
// backend answer. Context cancellation is neither.
func IsTransportError(err error) bool {
	return err != nil && !IsDomainError(err) && !errors.Is(err, context.Canceled)
}
