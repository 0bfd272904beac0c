package postgres

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
)

func (p *Postgres) PutToken(ctx context.Context, token *auth.Token) error {
	if token.ID == "" || token.Secret == "" {
		return goerr.New("invalid token", goerr.V("token_id", token.ID))
	}

	if _, err := p.pool.Exec(ctx, `INSERT INTO sessions (id, secret, sub, email, name, role, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET secret=EXCLUDED.secret, expires_at=EXCLUDED.expires_at`,
		token.ID.String(), token.Secret.String(), token.Sub, token.Email, token.Name,
		string(token.Role), token.ExpiresAt, token.CreatedAt); err != nil {
		return goerr.Wrap(err, "failed to put token")
	}
	return nil
}

func (p *Postgres) GetToken(ctx context.Context, tokenID auth.TokenID) (*auth.Token, error) {
	var token auth.Token
	err := p.pool.QueryRow(ctx, `SELECT id, secret, sub, email, name, role, expires_at, created_at
		FROM sessions WHERE id=$1`, tokenID.String()).
		Scan(&token.ID, &token.Secret, &token.Sub, &token.Email, &token.Name, &token.Role, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, goerr.Wrap(ErrNotFound, "token not found", goerr.V("token_id", tokenID))
		}
		return nil, goerr.Wrap(err, "failed to get token")
	}
	return &token, nil
}

func (p *Postgres) DeleteToken(ctx context.Context, tokenID auth.TokenID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, tokenID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete token")
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "token not found", goerr.V("token_id", tokenID))
	}
	return nil
}
