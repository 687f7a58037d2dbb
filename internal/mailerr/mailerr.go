// Package mailerr holds the error classes shared by the message and thread
// packages. Package level sentinels wrap one of these so callers can test the
// class with errors.Is.
package mailerr

import "errors"

var (
	// ErrContentAccess is returned when a backing file is missing or
	// unreadable, or when the MIME source cannot be decoded.
	ErrContentAccess = errors.New("content access error")

	// ErrPrecondition is returned when an operation is invoked in a state
	// that does not allow it. These are programmer errors.
	ErrPrecondition = errors.New("precondition violation")

	// ErrIO is returned when writing a message or part to disk fails.
	ErrIO = errors.New("i/o failure")
)
