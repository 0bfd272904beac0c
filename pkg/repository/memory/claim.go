package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

type claimRepository struct {
	mu     sync.RWMutex
	claims map[model.ClaimID]*model.Claim
}

func newClaimRepository() *claimRepository {
	return &claimRepository{
		claims: make(map[model.ClaimID]*model.Claim),
	}
}

func (r *claimRepository) Create(ctx context.Context, c *model.Claim) error {
	if c.ID == "" {
		return goerr.New("claim ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.claims[c.ID]; exists {
		return goerr.New("claim already exists", goerr.V("id", c.ID))
	}

	created := c.Copy()
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = created.CreatedAt
	r.claims[c.ID] = created

	c.CreatedAt = created.CreatedAt
	c.UpdatedAt = created.UpdatedAt
	return nil
}

func (r *claimRepository) Get(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.claims[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
	}
	return c.Copy(), nil
}

func (r *claimRepository) Update(ctx context.Context, c *model.Claim, expected types.ClaimStatus) (*model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.claims[c.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", c.ID))
	}
	if existing.Status != expected {
		return nil, goerr.Wrap(model.ErrInvalidTransition, "claim status changed concurrently",
			goerr.V("id", c.ID),
			goerr.V("expected", expected),
			goerr.V("actual", existing.Status))
	}

	updated := c.Copy()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.claims[c.ID] = updated
	return updated.Copy(), nil
}

func (r *claimRepository) Touch(ctx context.Context, id model.ClaimID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.claims[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *claimRepository) List(ctx context.Context, opts ...interfaces.ListClaimOption) ([]*model.Claim, error) {
	cfg := interfaces.BuildListClaimConfig(opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	claims := make([]*model.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		if s := cfg.Status(); s != nil && c.Status != *s {
			continue
		}
		if id := cfg.ClaimantID(); id != nil && c.ClaimantID != *id {
			continue
		}
		claims = append(claims, c.Copy())
	}

	sort.Slice(claims, func(i, j int) bool {
		if claims[i].CreatedAt.Equal(claims[j].CreatedAt) {
			return claims[i].ID > claims[j].ID
		}
		return claims[i].CreatedAt.After(claims[j].CreatedAt)
	})
	return claims, nil
}
