package mailer

import (
	"errors"
	"fmt"
)

// Local error codes. Codes returned by the API are passed through as-is and
// are not limited to these values.
const (
	UnknownError    = 1
	FileNotReadable = 2
)

const unknownErrorMessage = "Unknown error"

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrUnknown         = errors.New("unknown error")
	ErrFileNotReadable = errors.New("file not readable")
)

var _ error = &Error{}

// Error is the sticky error state of a Mailer presented as an error value.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mxwizard error %d: %s", e.Code, e.Message)
}

// Is implements errors.Is for the local error codes.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case UnknownError:
		return target == ErrUnknown
	case FileNotReadable:
		return target == ErrFileNotReadable
	}
	return false
}
