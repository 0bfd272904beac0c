package notify

import (
	"context"

	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

// Service tells humans about claims that need their attention
type Service interface {
	// ClaimReady is called when a claim enters assessor review
	ClaimReady(ctx context.Context, claim *model.Claim) error
	// ClaimDecided is called after an assessor records a decision
	ClaimDecided(ctx context.Context, claim *model.Claim) error
}

// Nop discards notifications
type Nop struct{}

func (Nop) ClaimReady(context.Context, *model.Claim) error   { return nil }
func (Nop) ClaimDecided(context.Context, *model.Claim) error { return nil }
