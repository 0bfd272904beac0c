package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type historyRepository struct {
	mu   sync.RWMutex
	rows map[model.ClaimID][]model.StatusHistory
}

func newHistoryRepository() *historyRepository {
	return &historyRepository{
		rows: make(map[model.ClaimID][]model.StatusHistory),
	}
}

func (r *historyRepository) Append(ctx context.Context, h *model.StatusHistory) error {
	if h.ID == "" || h.ClaimID == "" {
		return goerr.New("history ID and claim ID are required", goerr.V("id", h.ID), goerr.V("claim_id", h.ClaimID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[h.ClaimID] = append(r.rows[h.ClaimID], *h)
	return nil
}

func (r *historyRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.StatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.rows[claimID]
	out := make([]*model.StatusHistory, 0, len(rows))
	for i := range rows {
		h := rows[i]
		out = append(out, &h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
