package engine

import (
	"errors"

	"github.com/marup-app/marup-server/internal/storage"
)

// Business-rule errors. Validation errors are bad input and never
// retried; conflict errors may be retried by the caller after
// refetching state; capacity errors signal a lifecycle boundary and
// are terminal for the operation.
var (
	// Validation.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidGroup  = errors.New("invalid group parameters")
	ErrNotOwner      = errors.New("only the group owner may do this")

	// Conflict.
	ErrAlreadyMember         = errors.New("user is already a member of this group")
	ErrDuplicateRequest      = errors.New("a join request for this group already exists")
	ErrRequestDecided        = errors.New("join request has already been decided")
	ErrRoundAlreadyOpen      = errors.New("group already has an open round")
	ErrRoundClosed           = errors.New("round is already completed")
	ErrNotAMember            = errors.New("user is not a member of this group")
	ErrDuplicateContribution = errors.New("user already contributed to this round")
	ErrGroupInactive         = errors.New("group is not active")
	ErrIncompleteRound       = errors.New("not every member has contributed yet")

	// Capacity.
	ErrGroupFull         = errors.New("group is at member capacity")
	ErrDurationExhausted = errors.New("group has run all of its rounds")
	ErrNoEligibleMembers = errors.New("every member has already won")

	// ErrConsistency marks a detected invariant breach in stored data.
	// Processing for the affected group should halt rather than attempt
	// automatic repair.
	ErrConsistency = errors.New("ledger state violates an invariant")
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindCapacity
	KindNotFound
	KindConsistency
	KindStorage
)

// Classify maps an error to its kind. Anything not recognized as a
// business-rule or not-found error is treated as a storage fault, the
// only class eligible for transparent retry.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidGroup),
		errors.Is(err, ErrNotOwner):
		return KindValidation
	case errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrRequestDecided),
		errors.Is(err, ErrRoundAlreadyOpen),
		errors.Is(err, ErrRoundClosed),
		errors.Is(err, ErrNotAMember),
		errors.Is(err, ErrDuplicateContribution),
		errors.Is(err, ErrGroupInactive),
		errors.Is(err, ErrIncompleteRound),
		errors.Is(err, storage.ErrConflict):
		return KindConflict
	case errors.Is(err, ErrGroupFull),
		errors.Is(err, ErrDurationExhausted),
		errors.Is(err, ErrNoEligibleMembers):
		return KindCapacity
	case errors.Is(err, ErrConsistency):
		return KindConsistency
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	default:
		return KindStorage
	}
}

// Retryable reports whether the same logical operation may be safely
// re-attempted. Only infrastructure contention qualifies; business
// rejections never do.
func Retryable(err error) bool {
	return Classify(err) == KindStorage
}
