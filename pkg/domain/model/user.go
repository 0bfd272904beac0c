package model

import (
	"time"

	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// SystemActorID marks history rows written by background processing
const SystemActorID = "system"

// User is a portal account. ID is the identity provider subject.
type User struct {
	ID        string         `json:"id" firestore:"id"`
	Email     string         `json:"email" firestore:"email"`
	Name      string         `json:"name" firestore:"name"`
	Role      types.UserRole `json:"role" firestore:"role"`
	CreatedAt time.Time      `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" firestore:"updated_at"`
}
