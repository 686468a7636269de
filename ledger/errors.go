package ledger

import "errors"

// Expected, recoverable conditions surfaced to callers as stable error kinds.
// Anything else bubbling out of this package is an internal failure and is
// logged and reported generically by the HTTP layer.
var (
	// ErrInvalidIdentity means phone number or device id failed boundary
	// validation; no store access has happened.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrIneligible means the identity already spun today and holds no
	// unconsumed bonus chance.
	ErrIneligible = errors.New("not eligible to spin today")

	// ErrRaceLost means a concurrent spin won the atomic ledger write first.
	// Callers treat it the same as ErrIneligible.
	ErrRaceLost = errors.New("concurrent spin recorded first")

	// ErrStoreUnavailable means neither the primary nor the fallback store
	// could answer. The safe translation is deny, never grant.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	ErrCodeNotFound        = errors.New("reward code not found")
	ErrCodeAlreadyRedeemed = errors.New("reward code already redeemed")
	ErrCodeExpired         = errors.New("reward code expired")
)
