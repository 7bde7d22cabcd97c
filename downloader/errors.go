package downloader

import "fmt"

// NetworkError wraps a connect or timeout failure. Retried by the
// controller, never fatal to the run.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Treated like a NetworkError for retry
// purposes.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
}

// ContentTypeError means the fetched body is not image data. Counted as a
// failed download and left for the next outer retry round.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("not image content: %s (Content-Type: %s)", e.URL, e.ContentType)
}
