package library

import "errors"

// Failure classes returned by the lending operations. Callers classify with
// errors.Is and surface the wrapped message; no operation panics across the
// package boundary.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrLimitExceeded  = errors.New("borrow limit exceeded")
	ErrBlocked        = errors.New("blocked by outstanding fine")
	ErrNotOwned       = errors.New("not held by this member")
	ErrOverpayment    = errors.New("payment exceeds balance")
	ErrPersistence    = errors.New("persistence failure")
	ErrUnauthorized   = errors.New("operation not permitted for role")
	ErrBadCredentials = errors.New("invalid credentials")
)
