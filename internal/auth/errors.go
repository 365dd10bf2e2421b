package auth

import "errors"

var (
	ErrUnknownStrategy  = errors.New("auth: unknown strategy")
	ErrInvalidSession   = errors.New("auth: undecodable session user")
	ErrNoTokenService   = errors.New("auth: token service is required")
	ErrInvalidState     = errors.New("auth: oauth state mismatch")
	ErrProviderDenied   = errors.New("auth: provider denied authorization")
	ErrInvalidLogin     = errors.New("auth: invalid credentials")
	ErrDuplicateAccount = errors.New("auth: email already registered")
)
