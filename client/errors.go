package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUninitialized is returned when an operation needs a running
	// engine and Initialize has not been called.
	ErrUninitialized = errors.New("client: not initialized")

	// ErrAlreadyInitialized is returned by Initialize on a client whose
	// engine is already running.
	ErrAlreadyInitialized = errors.New("client: already initialized")

	// ErrDisposed is returned for any operation on a disposed client.
	ErrDisposed = errors.New("client: disposed")

	// ErrBadPresence is returned when a presence fails validation.
	ErrBadPresence = errors.New("client: invalid presence")

	// ErrStringOutOfRange is returned when a presence field exceeds its
	// byte budget. It wraps into ErrBadPresence checks.
	ErrStringOutOfRange = fmt.Errorf("client: string exceeds byte budget: %w", ErrBadPresence)

	// ErrInvalidConfiguration is returned when an operation needs a
	// capability the client was not configured with, such as
	// subscribing to join events without a registered URI scheme.
	ErrInvalidConfiguration = errors.New("client: invalid configuration")
)
