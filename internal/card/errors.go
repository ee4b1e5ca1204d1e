package card

import (
	"errors"
	"fmt"
)

var (
	ErrNoDesign   = errors.New("no design")
	ErrNotReady   = errors.New("card has not been rendered yet")
	ErrEmptyImage = errors.New("image has no pixels")
)

type ErrorKind string

const (
	KindImageLoad ErrorKind = "imageLoad"
	KindEncode    ErrorKind = "encode"
)

// CompositionError aborts a render or export. The previous frame stays
// visible.
type CompositionError struct {
	Kind ErrorKind
	Err  error
}

func (e *CompositionError) Error() string {
	switch e.Kind {
	case KindImageLoad:
		return fmt.Sprintf("failed to load card image: %v", e.Err)
	case KindEncode:
		return fmt.Sprintf("failed to encode card: %v", e.Err)
	default:
		return fmt.Sprintf("card composition failed: %v", e.Err)
	}
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}
