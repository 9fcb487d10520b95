package procurement

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError is returned when a request fails on the network, times out,
// returns a non-2xx status or carries an undecodable body.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s %s: HTTP %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 FetchError.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// ValidationError reports a response that decoded but broke the record
// contract, such as an item without its identifier.
type ValidationError struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s response: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("invalid %s item %d: %v", e.Kind, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
