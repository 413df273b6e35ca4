package onboarding

import (
	"context"
	"fmt"
)

// ProbeState is the answer of a capability probe against the aggregation service.
type ProbeState int

const (
	// ProbeIndeterminate means the probe could not tell, e.g. a network or permission error.
	ProbeIndeterminate ProbeState = iota

	// ProbeEnabled means the service is enabled for the delegated administrator.
	ProbeEnabled

	// ProbeDisabled means the service positively reported that it is not enabled.
	ProbeDisabled
)

// String provides a string representation of ProbeState for logging and debugging.
func (s ProbeState) String() string {
	switch s {
	case ProbeEnabled:
		return "enabled"
	case ProbeDisabled:
		return "disabled"
	default:
		return "indeterminate"
	}
}

// ProbeResult carries the probe state and, unless enabled, the error that led to it.
type ProbeResult struct {
	State ProbeState
	Err   error
}

// Usable reports whether a run may proceed. Indeterminate counts as not usable.
func (p ProbeResult) Usable() bool {
	return p.State == ProbeEnabled
}

// AsError converts an unusable probe result into an error wrapping ErrAggregationServiceDisabled.
func (p ProbeResult) AsError() error {
	if p.Usable() {
		return nil
	}

	if p.Err == nil {
		return fmt.Errorf("%w: probe %s", ErrAggregationServiceDisabled, p.State)
	}

	return fmt.Errorf("%w: probe %s: %w", ErrAggregationServiceDisabled, p.State, p.Err)
}

// CapabilityProber checks once, before anything else, that the aggregation service is usable.
type CapabilityProber interface {
	Probe(ctx context.Context) ProbeResult
}
