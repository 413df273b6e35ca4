package onboarding

import (
	"errors"
)

// MaxBatchSize is the largest number of accounts the aggregation service accepts per bulk call.
const MaxBatchSize = 50

// Fatal preconditions. A run that hits one of these stops before any submission.
var (
	ErrDirectoryUnavailable       = errors.New("organization directory unavailable")
	ErrRegistryUnavailable        = errors.New("aggregation service registry unavailable")
	ErrCredentialElevationFailed  = errors.New("credential elevation failed")
	ErrAggregationServiceDisabled = errors.New("aggregation service is not enabled for the delegated administrator")
)

// Construction and configuration errors.
var (
	ErrNilMemberCreator    = errors.New("member creator must not be nil")
	ErrNilMemberInviter    = errors.New("member inviter must not be nil")
	ErrNilDirectoryReader  = errors.New("directory reader must not be nil")
	ErrNilRegistryReader   = errors.New("registry reader must not be nil")
	ErrNilCapabilityProber = errors.New("capability prober must not be nil")
	ErrNilSubmitter        = errors.New("submitter must not be nil")
	ErrNilSleeper          = errors.New("sleeper must not be nil")
	ErrNegativePacing      = errors.New("batch pacing must not be negative")
	ErrEmptyDelegatedAdmin = errors.New("delegated administrator account id must not be empty")
	ErrInvalidBatchSize    = errors.New("batch size must be between 1 and MaxBatchSize")
)
