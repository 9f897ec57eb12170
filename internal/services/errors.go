package services

import "fmt"

// userError carries a message shown to customers verbatim while still matching its sentinel with errors.Is.
type userError struct {
	kind    error
	message string
}

func (e *userError) Error() string { return e.message }

func (e *userError) Unwrap() error { return e.kind }

func userFacing(kind error, format string, args ...any) error {
	return &userError{kind: kind, message: fmt.Sprintf(format, args...)}
}
