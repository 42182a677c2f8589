package fetch

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-nse-data/session"
)

// FetchError indicates a failed endpoint call: transport failure, bad
// status, unparseable body, or the service's JSON error envelope.
type FetchError struct {
	URL string
	Err error
}

func (e FetchError) Error() string {
	return fmt.Errorf("fetch %s: %w", e.URL, e.Err).Error()
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// WriteError indicates a filesystem failure while persisting a download.
type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Errorf("write %s: %w", e.Path, e.Err).Error()
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// errorLabel maps an error to the category used in logs and metrics.
func errorLabel(err error) string {
	if err == nil {
		return "none"
	}
	var fetchErr FetchError
	if errors.As(err, &fetchErr) {
		return "fetch"
	}
	var writeErr WriteError
	if errors.As(err, &writeErr) {
		return "write"
	}
	var bootErr session.BootstrapError
	if errors.As(err, &bootErr) {
		return "session"
	}
	return "other"
}
