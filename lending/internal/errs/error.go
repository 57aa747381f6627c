package errs

import (
	"errors"
	"fmt"
)

// Kinds. Every error returned by the service matches exactly one of them under errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrIntegrity       = errors.New("integrity violation")
	ErrStore           = errors.New("store failure")
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrBookNotFound      = New(ErrNotFound, "book not found")
	ErrBorrowerNotFound  = New(ErrNotFound, "borrower not found")
	ErrBorrowingNotFound = New(ErrNotFound, "borrowing record not found")

	ErrNoCopiesAvailable   = New(ErrConflict, "no copies available")
	ErrAlreadyReturned     = New(ErrConflict, "book already returned")
	ErrHasActiveBorrowings = New(ErrConflict, "active borrowings exist")

	ErrInvalidLoanDays  = New(ErrInvalidArgument, "loan days out of range")
	ErrInvalidDateRange = New(ErrInvalidArgument, "start date is after end date")
	ErrInvalidQuantity  = New(ErrInvalidArgument, "quantity must be positive")
	ErrNothingToUpdate  = New(ErrInvalidArgument, "nothing to update")
)

type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Kind() error { return e.kind }

// Integrity reports a constraint the store rejected.
func Integrity(constraint string, cause error) error {
	return &storeError{kind: ErrIntegrity, msg: fmt.Sprintf("constraint %s violated", constraint), cause: cause}
}

// Store wraps a store failure unrelated to business rules.
func Store(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &storeError{kind: ErrStore, msg: op, cause: cause}
}

type storeError struct {
	kind  error
	msg   string
	cause error
}

func (e *storeError) Error() string { return e.msg + ": " + e.cause.Error() }

func (e *storeError) Is(target error) bool { return target == e.kind }

func (e *storeError) Unwrap() error { return e.cause }

// Kind returns the kind sentinel of err, ErrStore for anything unclassified.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrIntegrity, ErrInvalidArgument, ErrStore} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStore
}

// Message is the text of err without the wrapped store cause.
func Message(err error) string {
	var se *storeError
	if errors.As(err, &se) {
		return se.msg
	}
	return err.Error()
}
