package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type imageRepository struct {
	mu      sync.RWMutex
	images  map[model.ImageID]*model.ClaimImage
	byClaim map[model.ClaimID][]model.ImageID
}

func newImageRepository() *imageRepository {
	return &imageRepository{
		images:  make(map[model.ImageID]*model.ClaimImage),
		byClaim: make(map[model.ClaimID][]model.ImageID),
	}
}

func (r *imageRepository) Create(ctx context.Context, img *model.ClaimImage) error {
	if img.ID == "" || img.ClaimID == "" {
		return goerr.New("image ID and claim ID are required", goerr.V("id", img.ID), goerr.V("claim_id", img.ClaimID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.images[img.ID]; exists {
		return goerr.New("image already exists", goerr.V("id", img.ID))
	}

	created := img.Copy()
	if created.UploadedAt.IsZero() {
		created.UploadedAt = time.Now().UTC()
		img.UploadedAt = created.UploadedAt
	}
	r.images[img.ID] = created
	r.byClaim[img.ClaimID] = append(r.byClaim[img.ClaimID], img.ID)
	return nil
}

func (r *imageRepository) Get(ctx context.Context, id model.ImageID) (*model.ClaimImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, exists := r.images[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
	}
	return img.Copy(), nil
}

func (r *imageRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.ClaimImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byClaim[claimID]
	images := make([]*model.ClaimImage, 0, len(ids))
	for _, id := range ids {
		images = append(images, r.images[id].Copy())
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].UploadedAt.Before(images[j].UploadedAt)
	})
	return images, nil
}

func (r *imageRepository) SetAnalysis(ctx context.Context, id model.ImageID, analysis *model.ImageAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, exists := r.images[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
	}

	updated := img.Copy()
	if analysis != nil {
		a := *analysis
		updated.Analysis = &a
	} else {
		updated.Analysis = nil
	}
	r.images[id] = updated
	return nil
}
