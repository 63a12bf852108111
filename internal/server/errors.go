package server

import "errors"

// Server-specific errors
var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrRateLimited          = errors.New("rate limited")
	ErrNoNetwork            = errors.New("vehicle has no network")
	ErrNoKeyboard           = errors.New("fleet is not keyboard driven")
)
