package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

type imageRepository struct {
	pool *pgxpool.Pool
}

const imageColumns = `id, claim_id, file_name, content_type, size, object_key, public_url, analysis, uploaded_at`

func (r *imageRepository) Create(ctx context.Context, img *model.ClaimImage) error {
	if img.ID == "" || img.ClaimID == "" {
		return goerr.New("image ID and claim ID are required", goerr.V("id", img.ID), goerr.V("claim_id", img.ClaimID))
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}
	analysis, err := marshalJSON(img.Analysis)
	if err != nil {
		return goerr.Wrap(err, "failed to encode image", goerr.V("id", img.ID))
	}

	if _, err := r.pool.Exec(ctx, `INSERT INTO claim_images (`+imageColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		img.ID.String(), img.ClaimID.String(), img.FileName, img.ContentType, img.Size,
		img.ObjectKey, img.PublicURL, analysis, img.UploadedAt); err != nil {
		return goerr.Wrap(err, "failed to insert image", goerr.V("id", img.ID))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.ClaimImage, error) {
	var (
		img      model.ClaimImage
		id       string
		claimID  string
		analysis []byte
	)
	if err := row.Scan(&id, &claimID, &img.FileName, &img.ContentType, &img.Size,
		&img.ObjectKey, &img.PublicURL, &analysis, &img.UploadedAt); err != nil {
		return nil, err
	}
	img.ID = model.ImageID(id)
	img.ClaimID = model.ClaimID(claimID)

	var err error
	if img.Analysis, err = unmarshalJSON[model.ImageAnalysis](analysis); err != nil {
		return nil, goerr.Wrap(err, "invalid image analysis column", goerr.V("id", id))
	}
	return &img, nil
}

func (r *imageRepository) Get(ctx context.Context, id model.ImageID) (*model.ClaimImage, error) {
	img, err := scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM claim_images WHERE id=$1`, id.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to select image", goerr.V("id", id))
	}
	return img, nil
}

func (r *imageRepository) ListByClaim(ctx context.Context, claimID model.ClaimID) ([]*model.ClaimImage, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+imageColumns+` FROM claim_images
		WHERE claim_id=$1 ORDER BY uploaded_at, id`, claimID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list images", goerr.V("claim_id", claimID))
	}
	defer rows.Close()

	images := []*model.ClaimImage{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan image", goerr.V("claim_id", claimID))
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate images", goerr.V("claim_id", claimID))
	}
	return images, nil
}

func (r *imageRepository) SetAnalysis(ctx context.Context, id model.ImageID, analysis *model.ImageAnalysis) error {
	data, err := marshalJSON(analysis)
	if err != nil {
		return goerr.Wrap(err, "failed to encode image analysis", goerr.V("id", id))
	}

	tag, err := r.pool.Exec(ctx, `UPDATE claim_images SET analysis=$1 WHERE id=$2`, data, id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to set image analysis", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "image not found", goerr.V("id", id))
	}
	return nil
}
