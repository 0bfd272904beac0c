package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

type ClaimID string

func NewClaimID() ClaimID {
	return ClaimID(uuid.Must(uuid.NewV7()).String())
}

func (x ClaimID) String() string { return string(x) }

// Claim is a vehicle damage claim and its review outcome
type Claim struct {
	ID         ClaimID `json:"id" firestore:"id"`
	ClaimantID string  `json:"claimant_id" firestore:"claimant_id"`
	AssessorID string  `json:"assessor_id,omitempty" firestore:"assessor_id"`
	Title      string  `json:"title" firestore:"title"`

	PolicyNumber     string `json:"policy_number" firestore:"policy_number"`
	PolicyholderName string `json:"policyholder_name" firestore:"policyholder_name"`

	VehicleMake        string `json:"vehicle_make" firestore:"vehicle_make"`
	VehicleModel       string `json:"vehicle_model" firestore:"vehicle_model"`
	VehicleYear        int    `json:"vehicle_year,omitempty" firestore:"vehicle_year"`
	RegistrationNumber string `json:"registration_number" firestore:"registration_number"`

	IncidentDate     time.Time `json:"incident_date" firestore:"incident_date"`
	IncidentLocation string    `json:"incident_location,omitempty" firestore:"incident_location"`
	Description      string    `json:"description" firestore:"description"`

	// ClaimedAmount is in whole currency units
	ClaimedAmount int64             `json:"claimed_amount" firestore:"claimed_amount"`
	Status        types.ClaimStatus `json:"status" firestore:"status"`

	Analysis      *ClaimAnalysis `json:"analysis,omitempty" firestore:"analysis"`
	AnalysisError string         `json:"analysis_error,omitempty" firestore:"analysis_error"`
	Brief         *AssessorBrief `json:"brief,omitempty" firestore:"brief"`

	AssessorNotes  string         `json:"assessor_notes,omitempty" firestore:"assessor_notes"`
	Decision       types.Decision `json:"decision,omitempty" firestore:"decision"`
	ApprovedAmount *int64         `json:"approved_amount,omitempty" firestore:"approved_amount"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty" firestore:"decided_at"`

	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// Copy returns a deep copy so callers can mutate without touching shared state
func (c *Claim) Copy() *Claim {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Analysis != nil {
		cp.Analysis = c.Analysis.Copy()
	}
	if c.Brief != nil {
		b := *c.Brief
		b.RiskFlags = append([]string(nil), c.Brief.RiskFlags...)
		cp.Brief = &b
	}
	if c.ApprovedAmount != nil {
		v := *c.ApprovedAmount
		cp.ApprovedAmount = &v
	}
	if c.DecidedAt != nil {
		v := *c.DecidedAt
		cp.DecidedAt = &v
	}
	return &cp
}

// IsOwnedBy reports whether userID filed the claim
func (c *Claim) IsOwnedBy(userID string) bool {
	return c.ClaimantID != "" && c.ClaimantID == userID
}

// VisibleTo reports whether a user with the given role may read the claim.
// Assessors see their assignments and the unassigned review queue.
func (c *Claim) VisibleTo(userID string, role types.UserRole) bool {
	switch role {
	case types.UserRoleAdmin:
		return true
	case types.UserRoleAssessor:
		if c.AssessorID == userID {
			return true
		}
		return c.AssessorID == "" && c.Status == types.ClaimStatusAssessorReview
	case types.UserRoleClaimant:
		return c.IsOwnedBy(userID)
	default:
		return false
	}
}
