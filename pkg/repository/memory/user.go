package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[string]model.User),
	}
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return &u, nil
}

func (r *userRepository) Put(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		return goerr.New("user ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *u
	now := time.Now().UTC()
	if existing, ok := r.users[u.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.users[u.ID] = stored

	u.CreatedAt = stored.CreatedAt
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})
	return users, nil
}
