package core

import "errors"

var (
	// ErrConfigurationInconsistency means a referenced category or
	// address is missing from the tenant document. Fatal to tenant
	// activation at load time; at decision time the message is rerouted
	// through the default tenant instead of being dropped.
	ErrConfigurationInconsistency = errors.New("tenant configuration inconsistency")

	// ErrOracleUnavailable means the classification oracle could not be
	// reached or returned an error. Recoverable: the keyword fallback
	// path takes over.
	ErrOracleUnavailable = errors.New("classification oracle unavailable")

	// ErrOracleTimeout means the oracle did not answer within the
	// configured bound. Recoverable, same as ErrOracleUnavailable.
	ErrOracleTimeout = errors.New("classification oracle timed out")

	// ErrNoTenantMatch means no tenant claims the recipient's domain.
	// Recoverable: the default tenant configuration is used.
	ErrNoTenantMatch = errors.New("no tenant matches recipient")

	// ErrSchedulerRace is an internal invariant violation: a timer both
	// fired and was cancelled without deterministic resolution. It is a
	// programming defect, never a user-facing condition.
	ErrSchedulerRace = errors.New("escalation timer fired and cancelled concurrently")
)
