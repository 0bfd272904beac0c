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

type imageRepository struct {
	client     *firestore.Client
	collection string
}

func (r *imageRepository) Create(ctx context.Context, img *model.ClaimImage) error {
	if img.ID == "" || img.ClaimID == "" {
		return goerr.New("image ID and claim ID are required", goerr.V("id", img.ID), goerr.V("claim_id", img.ClaimID))
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}

	if _, err := r.client.Collection(r.collection).Doc(img.ID.String()).Create(ctx, img); err != nil {
		return goerr.Wrap(err, "failed to create image", goerr.V("id", img.ID))
	}
	return nil
}

func (r *imageRepository) Get(ctx context.Context, id model.ImageID) (*model.ClaimImage, error) {
	docSnap, err := r.client.Collection(r.collection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get image", goerr.V("id", id))
	}

	var img model.ClaimImage
	if err := docSnap.DataTo(&img); err != nil {
		return nil, goerr.Wrap(err, "failed to decode image", goerr.V("id", id))
	}
	return &img, nil
}

func (r *imageRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.ClaimImage, error) {
	iter := r.client.Collection(r.collection).
		Where("claim_id", "==", claimID.String()).
		OrderBy("uploaded_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	images := []*model.ClaimImage{}
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate images", goerr.V("claim_id", claimID))
		}

		var img model.ClaimImage
		if err := docSnap.DataTo(&img); err != nil {
			return nil, goerr.Wrap(err, "failed to decode image", goerr.V("doc_id", docSnap.Ref.ID))
		}
		images = append(images, &img)
	}
	return images, nil
}

func (r *imageRepository) SetAnalysis(ctx context.Context, id model.ImageID, analysis *model.ImageAnalysis) error {
	_, err := r.client.Collection(r.collection).Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "analysis", Value: analysis},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to set image analysis", goerr.V("id", id))
	}
	return nil
}
