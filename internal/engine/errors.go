package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDependencyRejected  = errors.New("dependency rejected")
	ErrInvalidDirection    = errors.New("invalid dependency direction")
	ErrInvalidSide         = errors.New("invalid dependency side")
	ErrInvalidGranularity  = errors.New("invalid granularity")
	ErrUnknownWorkflow     = errors.New("unknown workflow")
	ErrForeignDependency   = errors.New("dependency not owned by its source task")
	ErrDuplicateIdentifier = errors.New("duplicate id")
	// ErrInvalidEdge rejects a bootstrap edge that AddDependency would refuse.
	ErrInvalidEdge         = errors.New("invalid dependency edge")
)

// RejectReason says why AddDependency left the store unchanged.
type RejectReason string

const (
	ReasonSelfLoop           RejectReason = "self-loop"
	ReasonDuplicate          RejectReason = "duplicate"
	ReasonTargetBeforeSource RejectReason = "target-before-source"
	ReasonUnknownTask        RejectReason = "unknown-task"
)

// RejectedError is returned for a dependency the store refused.
type RejectedError struct {
	Reason RejectReason
	FromID string
	ToID   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %s", ErrDependencyRejected, e.FromID, e.ToID, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrDependencyRejected }

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (RejectReason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
