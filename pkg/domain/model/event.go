package model

import (
	"time"

	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// ClaimEvent is published to live subscribers whenever a claim changes
type ClaimEvent struct {
	Type       types.ClaimEventType `json:"type"`
	ClaimID    ClaimID              `json:"claim_id"`
	Status     types.ClaimStatus    `json:"status"`
	ClaimantID string               `json:"claimant_id"`
	AssessorID string               `json:"assessor_id,omitempty"`
	At         time.Time            `json:"at"`
}

// NewClaimEvent snapshots the claim's routing fields
func NewClaimEvent(typ types.ClaimEventType, c *Claim) ClaimEvent {
	return ClaimEvent{
		Type:       typ,
		ClaimID:    c.ID,
		Status:     c.Status,
		ClaimantID: c.ClaimantID,
		AssessorID: c.AssessorID,
		At:         time.Now().UTC(),
	}
}

// VisibleTo applies the claim read rules to the event snapshot
func (e ClaimEvent) VisibleTo(userID string, role types.UserRole) bool {
	c := Claim{ClaimantID: e.ClaimantID, AssessorID: e.AssessorID, Status: e.Status}
	return c.VisibleTo(userID, role)
}
