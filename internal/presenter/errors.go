package presenter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBanState means the caller passed a malformed or partially
	// hydrated ban.
	ErrInvalidBanState = errors.New("invalid ban state")
	// ErrMissingPermissionContext means no viewer capabilities were supplied.
	ErrMissingPermissionContext = errors.New("missing permission context")
)

// Error carries the ban a render failed for. It unwraps to one of the
// sentinels above.
type Error struct {
	BanID  int64
	Err    error
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("presenting ban %d: %v: %s", e.BanID, e.Err, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(banID int64, detail string) *Error {
	return &Error{BanID: banID, Err: ErrInvalidBanState, Detail: detail}
}
