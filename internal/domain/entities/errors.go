package entities

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload = errors.New("response contains no data")
	ErrMissingField = errors.New("response is missing a required field")
)

// UpstreamError is returned when the weather API answers with anything but 200.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

type FetchErrorKind string

const (
	KindTransport FetchErrorKind = "transport"
	KindParse     FetchErrorKind = "parse"
)

// FetchError covers failures that never produced a usable status code or
// body: network errors and unexpected response shapes.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the upstream status from err, or 0 if err did not
// come from a non-200 response.
func StatusCode(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}
