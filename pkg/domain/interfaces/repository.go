package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
)

// ErrNotFound is wrapped by every repository backend when a record does not exist
var ErrNotFound = goerr.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Claim() ClaimRepository
	Image() ImageRepository
	History() HistoryRepository
	User() UserRepository

	// Auth methods
	PutToken(ctx context.Context, token *auth.Token) error
	GetToken(ctx context.Context, tokenID auth.TokenID) (*auth.Token, error)
	DeleteToken(ctx context.Context, tokenID auth.TokenID) error
}
