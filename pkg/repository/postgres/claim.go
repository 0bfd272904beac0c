package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

type claimRepository struct {
	pool *pgxpool.Pool
}

const claimColumns = `id, claimant_id, assessor_id, title, policy_number, policyholder_name,
	vehicle_make, vehicle_model, vehicle_year, registration_number,
	incident_date, incident_location, description, claimed_amount, status,
	analysis, analysis_error, brief, assessor_notes, decision, approved_amount, decided_at,
	created_at, updated_at`

func claimArgs(c *model.Claim) ([]any, error) {
	analysis, err := marshalJSON(c.Analysis)
	if err != nil {
		return nil, err
	}
	brief, err := marshalJSON(c.Brief)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID.String(), c.ClaimantID, c.AssessorID, c.Title, c.PolicyNumber, c.PolicyholderName,
		c.VehicleMake, c.VehicleModel, c.VehicleYear, c.RegistrationNumber,
		c.IncidentDate, c.IncidentLocation, c.Description, c.ClaimedAmount, string(c.Status),
		analysis, c.AnalysisError, brief, c.AssessorNotes, string(c.Decision), c.ApprovedAmount, c.DecidedAt,
		c.CreatedAt, c.UpdatedAt,
	}, nil
}

func scanClaim(row pgx.Row) (*model.Claim, error) {
	var (
		c        model.Claim
		id       string
		analysis []byte
		brief    []byte
	)
	if err := row.Scan(
		&id, &c.ClaimantID, &c.AssessorID, &c.Title, &c.PolicyNumber, &c.PolicyholderName,
		&c.VehicleMake, &c.VehicleModel, &c.VehicleYear, &c.RegistrationNumber,
		&c.IncidentDate, &c.IncidentLocation, &c.Description, &c.ClaimedAmount, &c.Status,
		&analysis, &c.AnalysisError, &brief, &c.AssessorNotes, &c.Decision, &c.ApprovedAmount, &c.DecidedAt,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = model.ClaimID(id)

	var err error
	if c.Analysis, err = unmarshalJSON[model.ClaimAnalysis](analysis); err != nil {
		return nil, goerr.Wrap(err, "invalid analysis column", goerr.V("id", id))
	}
	if c.Brief, err = unmarshalJSON[model.AssessorBrief](brief); err != nil {
		return nil, goerr.Wrap(err, "invalid brief column", goerr.V("id", id))
	}
	return &c, nil
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

	args, err := claimArgs(c)
	if err != nil {
		return goerr.Wrap(err, "failed to encode claim", goerr.V("id", c.ID))
	}

	if _, err := r.pool.Exec(ctx, `INSERT INTO claims (`+claimColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`, args...); err != nil {
		return goerr.Wrap(err, "failed to insert claim", goerr.V("id", c.ID))
	}
	return nil
}

func (r *claimRepository) Get(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id=$1`, id.String())
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to select claim", goerr.V("id", id))
	}
	return c, nil
}

func (r *claimRepository) Update(ctx context.Context, c *model.Claim, expected types.ClaimStatus) (*model.Claim, error) {
	updated := c.Copy()
	updated.UpdatedAt = time.Now().UTC()

	args, err := claimArgs(updated)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode claim", goerr.V("id", c.ID))
	}
	// drop created_at, it is never overwritten
	args = append(args[:22], args[23], string(expected))

	row := r.pool.QueryRow(ctx, `UPDATE claims SET
		claimant_id=$2, assessor_id=$3, title=$4, policy_number=$5, policyholder_name=$6,
		vehicle_make=$7, vehicle_model=$8, vehicle_year=$9, registration_number=$10,
		incident_date=$11, incident_location=$12, description=$13, claimed_amount=$14, status=$15,
		analysis=$16, analysis_error=$17, brief=$18, assessor_notes=$19, decision=$20,
		approved_amount=$21, decided_at=$22, updated_at=$23
		WHERE id=$1 AND status=$24
		RETURNING created_at`, args...)
	if err := row.Scan(&updated.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.updateConflict(ctx, c.ID, expected)
		}
		return nil, goerr.Wrap(err, "failed to update claim", goerr.V("id", c.ID))
	}
	return updated, nil
}

// updateConflict tells a missing claim apart from one whose status moved on
func (r *claimRepository) updateConflict(ctx context.Context, id model.ClaimID, expected types.ClaimStatus) error {
	var actual types.ClaimStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM claims WHERE id=$1`, id.String()).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read claim status", goerr.V("id", id))
	}
	return goerr.Wrap(model.ErrInvalidTransition, "claim status changed concurrently",
		goerr.V("id", id),
		goerr.V("expected", expected),
		goerr.V("actual", actual))
}

func (r *claimRepository) Touch(ctx context.Context, id model.ClaimID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE claims SET updated_at=$2 WHERE id=$1`, id.String(), time.Now().UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to touch claim", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "claim not found", goerr.V("id", id))
	}
	return nil
}

func (r *claimRepository) List(ctx context.Context, opts ...interfaces.ListClaimOption) ([]*model.Claim, error) {
	cfg := interfaces.BuildListClaimConfig(opts...)

	var (
		conds []string
		args  []any
	)
	if s := cfg.Status(); s != nil {
		args = append(args, string(*s))
		conds = append(conds, "status=$"+strconv.Itoa(len(args)))
	}
	if id := cfg.ClaimantID(); id != nil {
		args = append(args, *id)
		conds = append(conds, "claimant_id=$"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claims")
	}
	defer rows.Close()

	claims := []*model.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan claim")
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate claims")
	}
	return claims, nil
}
