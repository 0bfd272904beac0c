package types

import "github.com/m-mizutani/goerr/v2"

// ErrInvalidValue is returned when a string does not name a known enum value
var ErrInvalidValue = goerr.New("invalid value")

// ClaimStatus represents the review stage of a claim
type ClaimStatus string

const (
	ClaimStatusSubmitted      ClaimStatus = "submitted"
	ClaimStatusAIReview       ClaimStatus = "ai_review"
	ClaimStatusAssessorReview ClaimStatus = "assessor_review"
	ClaimStatusCompleted      ClaimStatus = "completed"
	ClaimStatusRejected       ClaimStatus = "rejected"
)

// AllClaimStatuses returns all valid claim statuses in lifecycle order
func AllClaimStatuses() []ClaimStatus {
	return []ClaimStatus{
		ClaimStatusSubmitted,
		ClaimStatusAIReview,
		ClaimStatusAssessorReview,
		ClaimStatusCompleted,
		ClaimStatusRejected,
	}
}

// IsValid checks if the claim status is valid
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusSubmitted,
		ClaimStatusAIReview,
		ClaimStatusAssessorReview,
		ClaimStatusCompleted,
		ClaimStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusCompleted || s == ClaimStatusRejected
}

func (s ClaimStatus) String() string {
	return string(s)
}

// ParseClaimStatus parses a string into a ClaimStatus
func ParseClaimStatus(s string) (ClaimStatus, error) {
	status := ClaimStatus(s)
	if !status.IsValid() {
		return "", goerr.Wrap(ErrInvalidValue, "invalid claim status", goerr.V("status", s))
	}
	return status, nil
}
