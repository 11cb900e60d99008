// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingFields indicates a required trial-signup field is absent.
	ErrMissingFields = errors.New("doctor and clinic details required")

	// ErrMissingCredentials indicates username or password is absent.
	ErrMissingCredentials = errors.New("username and password required")

	// ErrInvalidCredentials covers both unknown username and wrong password.
	// Callers must not distinguish the two cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLicenseExpired indicates the account's license expiry date has passed.
	ErrLicenseExpired = errors.New("license expired")

	// ErrTrialConsumed indicates the device has already used its trial.
	ErrTrialConsumed = errors.New("trial already used on this device")

	// ErrDuplicateDevice indicates a uniqueness violation on (device, license type).
	ErrDuplicateDevice = errors.New("device already holds a license of this type")

	// ErrAlreadyExists indicates a unique constraint violation (username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrDeviceIdentity indicates the host could not supply a machine identifier.
	ErrDeviceIdentity = errors.New("device identity unavailable")
)
