package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrEmptyURI   = errors.New("store: mongo uri is empty")
	ErrInvalidURI = errors.New("store: invalid mongo uri")
	ErrConnect    = errors.New("store: failed to connect")
	ErrPing       = errors.New("store: ping failed")
	ErrIndexes    = errors.New("store: failed to ensure indexes")
	ErrNotFound   = errors.New("store: not found")
	ErrDuplicate  = errors.New("store: duplicate")
)

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}

// IsMongoError reports whether err came from the driver or the server, as
// opposed to a store-level outcome like ErrNotFound.
func IsMongoError(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return false
	}
	var srv mongo.ServerError
	return errors.As(err, &srv) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, ErrPing) ||
		errors.Is(err, ErrConnect)
}
