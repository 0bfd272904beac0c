package postgres

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	claimant_id TEXT NOT NULL,
	assessor_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	policy_number TEXT NOT NULL,
	policyholder_name TEXT NOT NULL,
	vehicle_make TEXT NOT NULL,
	vehicle_model TEXT NOT NULL,
	vehicle_year INTEGER NOT NULL DEFAULT 0,
	registration_number TEXT NOT NULL,
	incident_date TIMESTAMPTZ NOT NULL,
	incident_location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	claimed_amount BIGINT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('submitted','ai_review','assessor_review','completed','rejected')),
	analysis JSONB,
	analysis_error TEXT NOT NULL DEFAULT '',
	brief JSONB,
	assessor_notes TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL DEFAULT '',
	approved_amount BIGINT,
	decided_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_claims_claimant ON claims(claimant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS claim_images (
	id TEXT PRIMARY KEY,
	claim_id TEXT NOT NULL REFERENCES claims(id),
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	object_key TEXT NOT NULL,
	public_url TEXT NOT NULL,
	analysis JSONB,
	uploaded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claim_images_claim ON claim_images(claim_id, uploaded_at);

CREATE TABLE IF NOT EXISTS claim_status_history (
	id TEXT PRIMARY KEY,
	claim_id TEXT NOT NULL REFERENCES claims(id),
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claim_status_history_claim ON claim_status_history(claim_id, created_at);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	secret TEXT NOT NULL,
	sub TEXT NOT NULL,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates tables and indexes if they do not exist
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to ensure postgres schema")
	}
	return nil
}
