package bfs

import (
	"errors"
	"io/fs"
)

// Sentinel errors for archive operations. Use errors.Is in callers
var (
	// ErrCorrupt means the archive structure is malformed
	ErrCorrupt = errors.New("bfs: corrupt archive")
	// ErrNotFound means a path lookup missed
	ErrNotFound = errors.New("bfs: not found")
	// ErrUnsupported means the operation or compression type is not supported
	ErrUnsupported = errors.New("bfs: unsupported")
	// ErrPastEOF means a seek target lies at or beyond the end of the file
	ErrPastEOF = errors.New("bfs: past end of file")
	// ErrClosed means the archive or file was already closed
	ErrClosed = errors.New("bfs: already closed")
)

// notFound wraps ErrNotFound for one path, matching both ErrNotFound and fs.ErrNotExist
func notFound(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: notExistError{}}
}

type notExistError struct{}

func (notExistError) Error() string { return ErrNotFound.Error() }

func (notExistError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}
