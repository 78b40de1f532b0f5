package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown destination type tag.
	ErrUnsupportedType = errors.New("unsupported destination type")

	// ErrSyncInProgress indicates a pass is already running for the
	// configuration. Same-configuration passes are mutually exclusive.
	ErrSyncInProgress = errors.New("sync already in progress")

	// Authentication errors.

	// ErrReauthRequired indicates the refresh token itself is invalid.
	// User-visible as "reconnect your account".
	ErrReauthRequired = errors.New("authentication expired, reconnect your account")

	// ErrTokenRefreshFailed indicates a token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Destination errors.

	// ErrDestinationGone indicates a destination prerequisite is missing
	// (spreadsheet/table/database deleted, or required structure could not
	// be provisioned). Fatal for the pass.
	ErrDestinationGone = errors.New("destination missing or inaccessible")

	// ErrRateLimited indicates the provider rate limit was exceeded and
	// bounded retries were exhausted.
	ErrRateLimited = errors.New("rate limited")
)
