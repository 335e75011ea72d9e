package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrEncoderUnavailable means no vector could be produced for a text.
	ErrEncoderUnavailable = goerr.New("encoder unavailable")

	// ErrInvalidFilter means the caller supplied a malformed identity filter.
	ErrInvalidFilter = goerr.New("invalid filter")

	// ErrUnknownCollection means the requested kind has no collection.
	ErrUnknownCollection = goerr.New("unknown collection")

	// ErrPersistence wraps an I/O failure in the underlying store.
	ErrPersistence = goerr.New("persistence failure")

	// ErrInvalidRecord means a record cannot be written as given.
	ErrInvalidRecord = goerr.New("invalid record")

	// ErrInvalidArgument is returned for out-of-range arguments such as k.
	ErrInvalidArgument = goerr.New("invalid argument")
)
