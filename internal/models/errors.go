package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidProvider is raised by local allow-list validation, before any
	// network call is made.
	ErrInvalidProvider = errors.New("invalid payment provider")

	// ErrUnresolvableProvider means the provider has no settlement currency
	// table entry at all.
	ErrUnresolvableProvider = errors.New("no settlement currency for provider")

	// ErrMethodProvisioned means the batch already has a payment method.
	ErrMethodProvisioned = errors.New("payment method already provisioned")

	// ErrMethodRequired means the payment phase was driven without a
	// provisioned method.
	ErrMethodRequired = errors.New("payment method not provisioned")

	ErrUnknownItem       = errors.New("item not in batch")
	ErrIllegalTransition = errors.New("illegal item state transition")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrEmptyCart         = errors.New("cart is empty, nothing to check out")
)

// MultiOwnerError rejects a cart spanning more than one owner. It is raised
// pre-flight, before any remote call.
type MultiOwnerError struct {
	// Groups maps each owner identifier to its item count.
	Groups map[string]int
}

func (e *MultiOwnerError) Error() string {
	owners := make([]string, 0, len(e.Groups))
	for owner := range e.Groups {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	parts := make([]string, len(owners))
	for i, owner := range owners {
		parts[i] = fmt.Sprintf("%s (%d items)", owner, e.Groups[owner])
	}
	return "cart spans multiple owners: " + strings.Join(parts, ", ")
}

// BookingError classifies a failed booking attempt. Transport, validation and
// unknown failures all collapse to a representative message; the raw remote
// field-error list is preserved for detailed display.
type BookingError struct {
	Message     string
	FieldErrors []string
}

func (e *BookingError) Error() string {
	return e.Message
}

// PaymentError classifies a failed charge attempt.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}
