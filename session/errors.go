package session

import "errors"

var (
	// ErrFetch is returned when document bytes could not be retrieved, fatal
	// to session initialization.
	ErrFetch = errors.New("unable to fetch document")
	// ErrDecode is returned when document package is malformed, fatal to
	// session initialization.
	ErrDecode = errors.New("unable to decode document")
	// ErrIndexGeneration means pagination produced nothing usable, session
	// continues without total page count.
	ErrIndexGeneration = errors.New("location index generation failed")
	// ErrPersistenceRead means cached state could not be decoded, cache is
	// discarded and rebuilt.
	ErrPersistenceRead = errors.New("unable to read persisted state")
	// ErrNavigationNoop means navigation target could not be resolved, it is
	// silently ignored by callers.
	ErrNavigationNoop = errors.New("navigation target unresolved")
	// ErrClosed is returned by operations on closed session.
	ErrClosed = errors.New("session is closed")
)
