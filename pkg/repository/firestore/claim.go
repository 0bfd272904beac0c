package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type claimRepository struct {
	client     *firestore.Client
	collection string
}

func (r *claimRepository) Create(ctx context.Context, c *model.Claim) error {
	if c.ID == "" {
		return goerr.New("claim ID is required")
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	if _, err := r.client.Collection(r.collection).Doc(c.ID.String()).Create(ctx, c); err != nil {
		return goerr.Wrap(err, "failed to create claim", goerr.V("id", c.ID))
	}
	return nil
}

func (r *claimRepository) Get(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	docSnap, err := r.client.Collection(r.collection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V("id", id))
	}

	var c model.Claim
	if err := docSnap.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode claim", goerr.V("id", id))
	}
	return &c, nil
}

func (r *claimRepository) Update(ctx context.Context, c *model.Claim, expected types.ClaimStatus) (*model.Claim, error) {
	docRef := r.client.Collection(r.collection).Doc(c.ID.String())
	updated := c.Copy()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", c.ID))
			}
			return goerr.Wrap(err, "failed to check claim existence", goerr.V("id", c.ID))
		}

		var existing model.Claim
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode claim", goerr.V("id", c.ID))
		}
		if existing.Status != expected {
			return goerr.Wrap(model.ErrInvalidTransition, "claim status changed concurrently",
				goerr.V("id", c.ID),
				goerr.V("expected", expected),
				goerr.V("actual", existing.Status))
		}

		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(docRef, updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update claim", goerr.V("id", c.ID))
	}
	return updated, nil
}

func (r *claimRepository) Touch(ctx context.Context, id model.ClaimID) error {
	_, err := r.client.Collection(r.collection).Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to touch claim", goerr.V("id", id))
	}
	return nil
}

func (r *claimRepository) List(ctx context.Context, opts ...interfaces.ListClaimOption) ([]*model.Claim, error) {
	cfg := interfaces.BuildListClaimConfig(opts...)

	q := r.client.Collection(r.collection).Query
	if s := cfg.Status(); s != nil {
		q = q.Where("status", "==", string(*s))
	}
	if id := cfg.ClaimantID(); id != nil {
		q = q.Where("claimant_id", "==", *id)
	}
	q = q.OrderBy("created_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	claims := []*model.Claim{}
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate claims")
		}

		var c model.Claim
		if err := docSnap.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode claim", goerr.V("doc_id", docSnap.Ref.ID))
		}
		claims = append(claims, &c)
	}
	return claims, nil
}
