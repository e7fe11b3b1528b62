// internal/services/errors.go
package services

import "errors"

// Sentinel errors shared by the services. Handlers map these onto HTTP status
// codes with errors.Is, so wrapped variants keep their classification.
var (
	// ErrNotFound covers unknown artwork, auction and purchase identifiers.
	ErrNotFound = errors.New("not found")

	// ErrForbidden covers requester mismatches: non-creators managing an
	// auction, non-winners acting on a purchase, non-artists shipping.
	ErrForbidden = errors.New("forbidden")

	// ErrStateConflict covers operations against the wrong lifecycle state,
	// such as double-starting an active auction or paying before providing
	// a shipping address.
	ErrStateConflict = errors.New("state conflict")

	// ErrPurchaseExpired is raised when a mutating purchase operation finds
	// the completion window already lapsed.
	ErrPurchaseExpired = errors.New("purchase has expired")
)
