package session

import "errors"

// Common errors returned by the session package.
var (
	// ErrNoData is reported when zero qualifying entries exist across
	// all roots. The engine stays Inactive; this is not a failure.
	ErrNoData = errors.New("no usage data found")

	// ErrInvalidSession is returned when a session record is missing
	// its identity.
	ErrInvalidSession = errors.New("invalid session: missing ID")

	// ErrStoreClosed is returned when using a closed history store.
	ErrStoreClosed = errors.New("history store is closed")
)
