package service

import (
	"errors"
	"fmt"
)

// Validation failures are rejected before any store access.
var ErrValidation = errors.New("validation failed")

// Conflict errors: the caller raced another user or holds a stale snapshot.
// They carry enough context to retry and are never resolved silently here.
var (
	ErrAlreadyLocked         = errors.New("request is locked by another preparer")
	ErrNotHolder             = errors.New("caller does not hold the fulfillment lock")
	ErrInvalidTransition     = errors.New("invalid fulfillment status transition")
	ErrInsufficientInventory = errors.New("insufficient available inventory")
	ErrStaleVersion          = errors.New("record was modified by another user")
	ErrNoFulfillableItems    = errors.New("no item is fulfilled or carries an unavailability reason")
	ErrIncompleteAllocation  = errors.New("unresolved items remain in the draft package")
)

// IntegrityError reports a broken store invariant (e.g. a reservation release
// that would drive reserved_qty negative). It aborts the transaction and
// indicates a bug rather than a user error.
type IntegrityError struct {
	Entity string
	ID     string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %s", e.Entity, e.ID, e.Detail)
}
