package storage

import "errors"

// Sentinel errors returned by repository operations. Handlers map these onto
// HTTP status codes; everything else is treated as an internal failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrDuplicate          = errors.New("duplicate resource")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrInviteRequired     = errors.New("invite code required")
)
