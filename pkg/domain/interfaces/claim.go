package interfaces

import (
	"context"

	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// ClaimRepository defines the interface for Claim data access
type ClaimRepository interface {
	// Create stores a new claim. The ID must already be set.
	Create(ctx context.Context, c *model.Claim) error

	// Get retrieves a claim by ID
	Get(ctx context.Context, id model.ClaimID) (*model.Claim, error)

	// Update replaces an existing claim if its stored status is still expected,
	// and fails with model.ErrInvalidTransition otherwise. CreatedAt is
	// preserved, UpdatedAt refreshed.
	Update(ctx context.Context, c *model.Claim, expected types.ClaimStatus) (*model.Claim, error)

	// Touch refreshes UpdatedAt only
	Touch(ctx context.Context, id model.ClaimID) error

	// List retrieves claims with optional filtering, newest first
	List(ctx context.Context, opts ...ListClaimOption) ([]*model.Claim, error)
}

// ImageRepository defines the interface for ClaimImage data access
type ImageRepository interface {
	Create(ctx context.Context, img *model.ClaimImage) error
	Get(ctx context.Context, id model.ImageID) (*model.ClaimImage, error)

	// ListByClaim returns a claim's images ordered by upload time
	ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.ClaimImage, error)

	// SetAnalysis attaches the analyzer result to an image
	SetAnalysis(ctx context.Context, id model.ImageID, analysis *model.ImageAnalysis) error
}

// HistoryRepository is append only
type HistoryRepository interface {
	Append(ctx context.Context, h *model.StatusHistory) error

	// ListByClaim returns history rows oldest first
	ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.StatusHistory, error)
}

// UserRepository defines the interface for User data access
type UserRepository interface {
	Get(ctx context.Context, id string) (*model.User, error)

	// Put creates or replaces the user
	Put(ctx context.Context, u *model.User) error

	List(ctx context.Context) ([]*model.User, error)
}
