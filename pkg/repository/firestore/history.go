package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type historyRepository struct {
	client     *firestore.Client
	collection string
}

func (r *historyRepository) Append(ctx context.Context, h *model.StatusHistory) error {
	if h.ID == "" || h.ClaimID == "" {
		return goerr.New("history ID and claim ID are required", goerr.V("id", h.ID), goerr.V("claim_id", h.ClaimID))
	}

	if _, err := r.client.Collection(r.collection).Doc(h.ID).Create(ctx, h); err != nil {
		return goerr.Wrap(err, "failed to append history", goerr.V("id", h.ID), goerr.V("claim_id", h.ClaimID))
	}
	return nil
}

func (r *historyRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.StatusHistory, error) {
	iter := r.client.Collection(r.collection).
		Where("claim_id", "==", claimID.String()).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	rows := []*model.StatusHistory{}
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate history", goerr.V("claim_id", claimID))
		}

		var h model.StatusHistory
		if err := docSnap.DataTo(&h); err != nil {
			return nil, goerr.Wrap(err, "failed to decode history", goerr.V("doc_id", docSnap.Ref.ID))
		}
		rows = append(rows, &h)
	}
	return rows, nil
}
