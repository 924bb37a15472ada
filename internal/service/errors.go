package service

import "errors"

var (
	// ErrUnauthenticated is returned when an action needs a current user
	// and there is none.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrStoreUnavailable is returned when the backing store handle is
	// missing at call time.
	ErrStoreUnavailable = errors.New("database not initialized")

	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("not found")
)

// RemoteError is a store-rejected operation.
// Its message is the store's own message so it can be shown verbatim.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Remote wraps err as a RemoteError for op. Nil and already-classified
// errors are returned unchanged.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrUnauthenticated) {
		return err
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}
