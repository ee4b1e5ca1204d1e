package unsplash

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when Search is called with a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// StartupError reports a client that cannot be constructed. It is fatal.
type StartupError struct {
	Reason string
}

func (e *StartupError) Error() string {
	return "unsplash client: " + e.Reason
}

type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
)

// ProviderError wraps any failed provider call.
type ProviderError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("Unsplash API error: %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("Unsplash API request %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("Unsplash API request %s failed", e.Endpoint)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
