package domain

import "errors"

// Sentinel errors shared across pipeline stages and adapters.
var (
	// ErrRateLimited marks a rate-limit-class provider failure (HTTP 429).
	// On the final retry attempt it triggers immediate failover instead of
	// another backoff sleep.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse marks a provider reply that is not valid JSON or
	// is missing required keys. Treated like a transient failure.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrMissingColumn marks a structural input problem (required column or
	// field absent). Fails the whole batch before any processing starts.
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoProviders is returned when every configured provider failed.
	ErrNoProviders = errors.New("all providers failed")
)
