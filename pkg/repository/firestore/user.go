package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userRepository struct {
	client     *firestore.Client
	collection string
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	docSnap, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var u model.User
	if err := docSnap.DataTo(&u); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
	}
	return &u, nil
}

func (r *userRepository) Put(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		return goerr.New("user ID is required")
	}

	docRef := r.client.Collection(r.collection).Doc(u.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		snap, err := tx.Get(docRef)
		switch {
		case err == nil:
			var existing model.User
			if err := snap.DataTo(&existing); err != nil {
				return goerr.Wrap(err, "failed to decode user", goerr.V("id", u.ID))
			}
			u.CreatedAt = existing.CreatedAt
		case status.Code(err) == codes.NotFound:
			if u.CreatedAt.IsZero() {
				u.CreatedAt = now
			}
		default:
			return goerr.Wrap(err, "failed to get user", goerr.V("id", u.ID))
		}
		u.UpdatedAt = now
		return tx.Set(docRef, u)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", u.ID))
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	iter := r.client.Collection(r.collection).OrderBy("email", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	users := []*model.User{}
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		var u model.User
		if err := docSnap.DataTo(&u); err != nil {
			return nil, goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", docSnap.Ref.ID))
		}
		users = append(users, &u)
	}
	return users, nil
}
