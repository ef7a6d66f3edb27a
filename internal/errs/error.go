package errs

import (
	"errors"
)

var (
	// ErrNotFound covers invalid reader/book/order/loan references and
	// confirmation codes that do not match a pending order.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means no copies are left for a reservation.
	ErrUnavailable = errors.New("no available copies")

	// ErrAlreadyIssued means the order was already converted into a loan.
	ErrAlreadyIssued = errors.New("order already issued")

	// ErrAlreadyReturned means the loan is already closed.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrInUse means the reader or book still has loans or orders
	// referencing it and cannot be deleted.
	ErrInUse = errors.New("still referenced")

	// ErrCodeTaken means the generated confirmation code collides with
	// another pending order. Callers regenerate and retry.
	ErrCodeTaken = errors.New("confirmation code taken")

	// ErrConflict is a write conflict that survived the bounded retry.
	ErrConflict = errors.New("write conflict")
)
