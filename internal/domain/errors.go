package domain

import "errors"

// Cryptographic and input errors surface to the caller verbatim;
// authorization errors are collapsed to ErrNotAuthorized regardless of
// cause; internal errors are collapsed with detail kept only in the audit
// trail.
var (
	// Input
	ErrBadAlgorithm     = errors.New("bad algorithm")
	ErrInputTooLarge    = errors.New("input too large")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMalformedBackup  = errors.New("malformed backup")

	// Authorization
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotAuthorized    = errors.New("not authorized")

	// State
	ErrKeyUnknown     = errors.New("key unknown")
	ErrKeyNotActive   = errors.New("key not active")
	ErrNothingToBackUp = errors.New("nothing to back up")

	// Cryptographic
	ErrBadKey       = errors.New("bad key")
	ErrBadPadding   = errors.New("bad padding")
	ErrBadSignature = errors.New("bad signature")
	ErrRngFailure   = errors.New("rng failure")

	// Internal
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrConfigMissing      = errors.New("config missing")
)
