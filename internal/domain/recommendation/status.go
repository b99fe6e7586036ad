// Package recommendation holds the per-applicant recommendation record rules:
// status transitions, filter state and current-pick selection.
//
//	pending ──► submitted (terminal)
//	   │
//	   └──────► skipped ──► pending (daily reactivation)
//
// viewed is a stored value with no outgoing transitions.
package recommendation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusViewed    Status = "viewed"
	StatusSubmitted Status = "submitted"
	StatusSkipped   Status = "skipped"
)

var validTransitions = map[Status][]Status{
	StatusPending: {StatusSubmitted, StatusSkipped},
	StatusSkipped: {StatusPending},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusViewed, StatusSubmitted, StatusSkipped:
		return st, nil
	}
	return "", fmt.Errorf("unknown recommendation status %q", s)
}

func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTapStatus(s Status) bool {
	return s == StatusSubmitted || s == StatusSkipped
}

func IsSticky(s Status) bool {
	return s == StatusSubmitted || s == StatusSkipped
}

// StatusAfterRematch is the status a record gets when matching refreshes it.
// existing is nil for a record that does not exist yet.
func StatusAfterRematch(existing *Status) Status {
	if existing != nil && IsSticky(*existing) {
		return *existing
	}
	return StatusPending
}

type Record struct {
	ID              uuid.UUID
	ApplicantID     uuid.UUID
	PostingID       uuid.UUID
	SimilarityScore float64
	Status          Status
	IsCurrent       bool
	StatusChangedAt *time.Time
	CreatedAt       time.Time
}
