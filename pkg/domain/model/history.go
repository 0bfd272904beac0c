package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// StatusHistory is an append-only audit row for one status change
type StatusHistory struct {
	ID         string            `json:"id" firestore:"id"`
	ClaimID    ClaimID           `json:"claim_id" firestore:"claim_id"`
	FromStatus types.ClaimStatus `json:"from_status" firestore:"from_status"`
	ToStatus   types.ClaimStatus `json:"to_status" firestore:"to_status"`
	ActorID    string            `json:"actor_id" firestore:"actor_id"`
	Note       string            `json:"note,omitempty" firestore:"note"`
	CreatedAt  time.Time         `json:"created_at" firestore:"created_at"`
}

// NewStatusHistory builds a history row stamped with the current time
func NewStatusHistory(claimID ClaimID, from, to types.ClaimStatus, actorID, note string) *StatusHistory {
	return &StatusHistory{
		ID:         uuid.Must(uuid.NewV7()).String(),
		ClaimID:    claimID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}
