package ftp

import "errors"

// Failure kinds for the path helpers. The wire protocol collapses these
// into the same 550 reply, so internal code and tests branch on the kind
// rather than the code.
var (
	// ErrNotFound covers a missing path and a path whose entry kind does
	// not fit the operation (a directory where a file is required, or the
	// reverse).
	ErrNotFound = errors.New("no such file or directory")

	// ErrOutsideRoot marks a resolved path that escapes the user's root.
	ErrOutsideRoot = errors.New("path outside user root")
)

// errSessionClosed is returned by a handler to end the command loop.
var errSessionClosed = errors.New("session closed")
