package errorz

import (
	"errors"
	"strings"
)

// InvalidInput signals that a provided input is invalid due to the
// wrapped errors. The wrapped errors are usually Keyed so callers can
// report them next to the corresponding form field.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Keyed associates an error with the input field that caused it.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	return k.Key + ": " + k.Err.Error()
}

func (k Keyed) Unwrap() error {
	return k.Err
}

// NewKeyed wraps a message as a Keyed error for the given field.
func NewKeyed(key, msg string) Keyed {
	return Keyed{Key: key, Err: errors.New(msg)}
}
