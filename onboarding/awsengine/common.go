package awsengine

import (
	"errors"
	"time"
)

const (
	defaultPageSize     int32 = 20
	maxPageSize         int32 = 20
	defaultMaxAttempts        = 3
	defaultBaseDelay          = 200 * time.Millisecond
	defaultJitterFactor       = 0.3
)

// MetricThrottleRetries counts retries caused by throttling, labeled by operation and error code.
const MetricThrottleRetries = "onboarding_retries_total"

const (
	operationListAccounts    = "list_accounts"
	operationListMembers     = "list_members"
	operationCreateMembers   = "create_members"
	operationInviteMembers   = "invite_members"
	operationGetCallerID     = "get_caller_identity"
	operationGetAdminAccount = "get_administrator_account"
	unprocessedWithoutReason = "unprocessed (no reason given)"
)

var (
	// ErrNilOrganizationsClient is returned when NewDirectoryReader receives a nil client.
	ErrNilOrganizationsClient = errors.New("organizations client must not be nil")

	// ErrNilSecurityHubClient is returned when NewRegistry receives a nil client.
	ErrNilSecurityHubClient = errors.New("security hub client must not be nil")

	// ErrNilSTSClient is returned when a nil STS client is provided.
	ErrNilSTSClient = errors.New("sts client must not be nil")

	// ErrInvalidPageSize is returned when the page size is outside 1..20.
	ErrInvalidPageSize = errors.New("page size must be between 1 and 20")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

	// ErrBatchTooLarge is returned when a bulk call receives more accounts than the service accepts.
	ErrBatchTooLarge = errors.New("batch exceeds the bulk call limit")

	// ErrInvalidAccountID is returned when an account id is not a 12 digit number.
	ErrInvalidAccountID = errors.New("account id must be 12 digits")

	// ErrEmptyRoleName is returned when the role name for credential elevation is empty.
	ErrEmptyRoleName = errors.New("role name must not be empty")
)

// Throttling error codes returned by Organizations, Security Hub and STS.
var throttleCodes = map[string]struct{}{
	"ThrottlingException":      {},
	"TooManyRequestsException": {},
	"LimitExceededException":   {},
	"RequestLimitExceeded":     {},
	"Throttling":               {},
}

// Probe error codes that positively mean Security Hub is not enabled for the caller.
var disabledCodes = map[string]struct{}{
	"InvalidAccessException":    {},
	"ResourceNotFoundException": {},
}
