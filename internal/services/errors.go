package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an unknown identifier.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized marks an actor/resource ownership mismatch.
	ErrUnauthorized = errors.New("not authorized for this resource")

	// ErrPaymentNotHeld is returned when release or refund is attempted on a
	// payment that is not currently held.
	ErrPaymentNotHeld = errors.New("payment is not held")

	// ErrSeatsExhausted is returned when a seat reservation would push
	// availableSeats below zero.
	ErrSeatsExhausted = errors.New("not enough seats available")

	// ErrSeatsOverflow is returned when a seat restoration would push
	// availableSeats above totalSeats.
	ErrSeatsOverflow = errors.New("seat restoration exceeds total seats")

	// ErrSignatureInvalid marks a webhook rejected before processing.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// ValidationError is a user-correctable input problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InvalidStateTransitionError is a state machine violation. Current carries
// the authoritative state so clients can resynchronize.
type InvalidStateTransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s", e.Entity, e.Current, e.Attempted)
}
