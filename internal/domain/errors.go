package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrCodeInvalid covers every failed code check: never issued, already
	// redeemed, expired, or a plain mismatch. Collapsing these into one kind
	// is intentional so callers cannot probe which failure occurred.
	ErrCodeInvalid = errors.New("code invalid or expired")

	// ErrAlreadyVerified is returned when a verification flow is re-run for
	// an account that already completed it.
	ErrAlreadyVerified = errors.New("already verified")

	// ErrStorage marks infrastructure faults (connectivity, timeouts).
	// Callers decide whether to retry.
	ErrStorage = errors.New("storage unavailable")

	// ErrDelivery marks outbound email/SMS send failures.
	ErrDelivery = errors.New("delivery failed")
)
