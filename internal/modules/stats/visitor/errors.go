package visitor

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks a missing or malformed required field.
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound marks an unknown visit id.
	ErrNotFound = errors.New("visit not found")
	// ErrStoreUnavailable wraps every other failure coming out of the Store.
	ErrStoreUnavailable = errors.New("visit store unavailable")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// storeErr keeps already classified errors as-is and tags anything else as a store failure.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func errIsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
