package cache

import "errors"

var (
	// ErrCacheMiss is returned by GetJSON when the key is absent, expired
	// or holds data that does not decode.
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed is returned once the backend connection is closed.
	ErrClosed = errors.New("cache closed")
)
