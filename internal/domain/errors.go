package domain

import "errors"

// Filesystem errors returned by adapters and the asset resolver
var (
	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the path already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")
)

// Staging errors
var (
	// ErrManifestInvalid indicates a malformed staging manifest
	ErrManifestInvalid = errors.New("invalid manifest")

	// ErrStageInProgress indicates another staging run holds the manifest
	ErrStageInProgress = errors.New("staging already in progress")
)

// Provisioning errors
var (
	// ErrInvalidLength indicates an ID length outside the supported range
	ErrInvalidLength = errors.New("invalid id length")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
