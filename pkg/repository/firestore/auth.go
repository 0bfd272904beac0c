package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// sessionDoc is the stored form of a session. ExpireAt is the field a Firestore
// TTL policy on the sessions collection should point at.
type sessionDoc struct {
	Secret    string    `firestore:"secret"`
	Sub       string    `firestore:"sub"`
	Email     string    `firestore:"email"`
	Name      string    `firestore:"name"`
	Role      string    `firestore:"role"`
	ExpireAt  time.Time `firestore:"expire_at"`
	CreatedAt time.Time `firestore:"created_at"`
}

func (f *Firestore) sessions() *firestore.CollectionRef {
	return f.client.Collection(f.collectionName(CollectionSessions))
}

func (f *Firestore) PutToken(ctx context.Context, token *auth.Token) error {
	if token.ID == "" || token.Secret == "" {
		return goerr.New("invalid token", goerr.V("token_id", token.ID))
	}

	doc := sessionDoc{
		Secret:    token.Secret.String(),
		Sub:       token.Sub,
		Email:     token.Email,
		Name:      token.Name,
		Role:      string(token.Role),
		ExpireAt:  token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}
	if _, err := f.sessions().Doc(token.ID.String()).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put session", goerr.V("token_id", token.ID))
	}
	return nil
}

func (f *Firestore) GetToken(ctx context.Context, tokenID auth.TokenID) (*auth.Token, error) {
	if tokenID == "" {
		return nil, goerr.Wrap(ErrNotFound, "empty token ID")
	}

	snap, err := f.sessions().Doc(tokenID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("token_id", tokenID))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("token_id", tokenID))
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("token_id", tokenID))
	}
	return &auth.Token{
		ID:        tokenID,
		Secret:    auth.TokenSecret(doc.Secret),
		Sub:       doc.Sub,
		Email:     doc.Email,
		Name:      doc.Name,
		Role:      types.UserRole(doc.Role),
		ExpiresAt: doc.ExpireAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// DeleteToken removes the session in one call; the Exists precondition turns a
// missing document into NotFound.
func (f *Firestore) DeleteToken(ctx context.Context, tokenID auth.TokenID) error {
	if tokenID == "" {
		return goerr.Wrap(ErrNotFound, "empty token ID")
	}

	if _, err := f.sessions().Doc(tokenID.String()).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "session not found", goerr.V("token_id", tokenID))
		}
		return goerr.Wrap(err, "failed to delete session", goerr.V("token_id", tokenID))
	}
	return nil
}
