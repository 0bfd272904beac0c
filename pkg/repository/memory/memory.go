package memory

import (
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
)

// ErrNotFound is returned for missing records
var ErrNotFound = interfaces.ErrNotFound

// Memory keeps all records in process. It is the development backend.
type Memory struct {
	claims  *claimRepository
	images  *imageRepository
	history *historyRepository
	users   *userRepository
	tokens  *tokenStore
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		claims:  newClaimRepository(),
		images:  newImageRepository(),
		history: newHistoryRepository(),
		users:   newUserRepository(),
		tokens:  newTokenStore(),
	}
}

func (m *Memory) Claim() interfaces.ClaimRepository {
	return m.claims
}

func (m *Memory) Image() interfaces.ImageRepository {
	return m.images
}

func (m *Memory) History() interfaces.HistoryRepository {
	return m.history
}

func (m *Memory) User() interfaces.UserRepository {
	return m.users
}
