package spatial

import "errors"

// ErrEmptyInput is matched by every *EmptyInputError.
var ErrEmptyInput = errors.New("empty point set")

// EmptyInputError indicates an index was requested over no points.
//
// errors.Is(err, ErrEmptyInput) reports true for it.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return "spatial: " + e.Op + ": " + ErrEmptyInput.Error()
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }
