package types

import (
	"errors"
	"fmt"
)

// Error kinds. A StageError matches its kind with errors.Is.
var (
	ErrManifestFetch = errors.New("manifest fetch failed")
	ErrManifestParse = errors.New("manifest parse failed")
	ErrDetailFetch   = errors.New("detail fetch failed")
	ErrDetailDecode  = errors.New("detail decode failed")
	ErrStore         = errors.New("store write failed")
)

// StageError records where in the pipeline a failure happened
type StageError struct {
	Kind   error
	Source string
	URL    string
	ID     string
	Err    error
}

func (e *StageError) Error() string {
	msg := e.Kind.Error()
	if e.Source != "" {
		msg += fmt.Sprintf(" source=%s", e.Source)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" upc=%s", e.ID)
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" url=%s", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Is(target error) bool {
	return target == e.Kind
}

func (e *StageError) Unwrap() error {
	return e.Err
}
