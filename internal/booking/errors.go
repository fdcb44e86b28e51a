package booking

import (
	"errors"
	"fmt"
)

// Kind identifies which field rule a ValidationError violated.
type Kind string

const (
	InvalidIdentity  Kind = "invalid_identity"
	InvalidEmail     Kind = "invalid_email"
	InvalidDate      Kind = "invalid_date"
	InvalidPartySize Kind = "invalid_party_size"
)

var (
	// ErrDuplicateIdentity is returned when the personnummer is already booked.
	ErrDuplicateIdentity = errors.New("Dubbelbokning ej tillåten för detta personnummer!")
	// ErrNotFound is returned by Get for an id with no booking.
	ErrNotFound = errors.New("Bokningen finns inte.")
)

// ValidationError is the first field rule a booking request broke.
type ValidationError struct {
	Kind Kind
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

// StorageError wraps a failure from the booking store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateIdentity)
}
