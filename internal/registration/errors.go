package registration

import "errors"

// ValidationError reports input that was missing or malformed. Each one
// counts against the form error counter.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

var (
	ErrMissingField = &ValidationError{Reason: "missing field"}
	ErrInvalidEmail = &ValidationError{Reason: "invalid email"}
	ErrNameTooShort = &ValidationError{Reason: "name too short"}

	// ErrDuplicate is returned when the normalized email is already on file.
	// It does not touch any counter.
	ErrDuplicate = errors.New("email already registered")
)

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
