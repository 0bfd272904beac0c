package interfaces

import "github.com/secmon-lab/claimdesk/pkg/domain/types"

// ListClaimOption is a functional option for filtering claims in List
type ListClaimOption func(*listClaimConfig)

type listClaimConfig struct {
	status     *types.ClaimStatus
	claimantID *string
}

// WithStatus filters claims by status
func WithStatus(status types.ClaimStatus) ListClaimOption {
	return func(c *listClaimConfig) {
		c.status = &status
	}
}

// WithClaimant filters claims filed by the given user
func WithClaimant(userID string) ListClaimOption {
	return func(c *listClaimConfig) {
		c.claimantID = &userID
	}
}

// BuildListClaimConfig builds a listClaimConfig from options
func BuildListClaimConfig(opts ...ListClaimOption) *listClaimConfig {
	cfg := &listClaimConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Status returns the status filter value, or nil if not set
func (c *listClaimConfig) Status() *types.ClaimStatus {
	return c.status
}

// ClaimantID returns the claimant filter value, or nil if not set
func (c *listClaimConfig) ClaimantID() *string {
	return c.claimantID
}
