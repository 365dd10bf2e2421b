package oauth

import "errors"

var (
	ErrMissingClientID     = errors.New("oauth: missing client ID")
	ErrMissingClientSecret = errors.New("oauth: missing client secret")
	ErrExchangeFailed      = errors.New("oauth: code exchange failed")
	ErrFetchFailed         = errors.New("oauth: failed to fetch profile")
	ErrRequestFailed       = errors.New("oauth: profile request returned non-OK status")
	ErrDecodeFailed        = errors.New("oauth: failed to decode profile")
	ErrNoUserID            = errors.New("oauth: profile has no user id")
)
