package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type historyRepository struct {
	pool *pgxpool.Pool
}

func (r *historyRepository) Append(ctx context.Context, h *model.StatusHistory) error {
	if h.ID == "" || h.ClaimID == "" {
		return goerr.New("history ID and claim ID are required", goerr.V("id", h.ID), goerr.V("claim_id", h.ClaimID))
	}

	if _, err := r.pool.Exec(ctx, `INSERT INTO claim_status_history
		(id, claim_id, from_status, to_status, actor_id, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.ClaimID.String(), string(h.FromStatus), string(h.ToStatus), h.ActorID, h.Note, h.CreatedAt); err != nil {
		return goerr.Wrap(err, "failed to append history", goerr.V("id", h.ID), goerr.V("claim_id", h.ClaimID))
	}
	return nil
}

func (r *historyRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, claim_id, from_status, to_status, actor_id, note, created_at
		FROM claim_status_history WHERE claim_id=$1 ORDER BY created_at, id`, claimID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list history", goerr.V("claim_id", claimID))
	}
	defer rows.Close()

	out := []*model.StatusHistory{}
	for rows.Next() {
		var (
			h  model.StatusHistory
			id string
		)
		if err := rows.Scan(&h.ID, &id, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.Note, &h.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan history", goerr.V("claim_id", claimID))
		}
		h.ClaimID = model.ClaimID(id)
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate history", goerr.V("claim_id", claimID))
	}
	return out, nil
}
