package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure kinds
var (
	ErrTransport = errors.New("transport error")
	ErrDecode    = errors.New("decode error")
	ErrStorage   = errors.New("storage error")
)

// FetchError is a failed search for a single wishlist keyword
type FetchError struct {
	Keyword string
	Kind    error // ErrTransport or ErrDecode
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("search %q: %v: %v", e.Keyword, e.Kind, e.Err)
}

func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError is a failure reading, appending to or truncating the results log
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
