package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrValidation    = errors.New("validation error")
	ErrEmptyTarget   = errors.New("target cannot be empty")
	ErrInvalidURL    = errors.New("invalid target URL")
	ErrInvalidScheme = errors.New("target scheme must be http or https")
	ErrMissingHost   = errors.New("target host cannot be empty")

	// Probe errors
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidTable    = errors.New("invalid signature table")

	// Port errors
	ErrInvalidPort      = errors.New("invalid port")
	ErrInvalidPortRange = errors.New("invalid port range")
)
