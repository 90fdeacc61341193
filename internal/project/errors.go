package project

import "errors"

// Request-level error categories. Optional subsystems never produce these.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("project not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
