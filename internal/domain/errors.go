package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a state transition is not allowed.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInvalidPipeline is returned when a pipeline definition is malformed.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrLeaseHeld is returned when the target lease is held by another run.
	ErrLeaseHeld = errors.New("lease held by another run")

	// ErrInvalidArgument is returned when an argument is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists is returned when trying to create a duplicate entity.
	ErrAlreadyExists = errors.New("already exists")
)
