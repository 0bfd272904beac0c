package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
)

// ErrNotFound is returned for missing documents
var ErrNotFound = interfaces.ErrNotFound

// Collection names without prefix
const (
	CollectionClaims   = "claims"
	CollectionImages   = "claim_images"
	CollectionHistory  = "claim_history"
	CollectionUsers    = "users"
	CollectionSessions = "sessions"
)

type Firestore struct {
	client  *firestore.Client
	prefix  string
	claims  *claimRepository
	images  *imageRepository
	history *historyRepository
	users   *userRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.prefix = prefix
	}
}

// New connects to Firestore. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}

	f.claims = &claimRepository{client: client, collection: f.collectionName(CollectionClaims)}
	f.images = &imageRepository{client: client, collection: f.collectionName(CollectionImages)}
	f.history = &historyRepository{client: client, collection: f.collectionName(CollectionHistory)}
	f.users = &userRepository{client: client, collection: f.collectionName(CollectionUsers)}

	return f, nil
}

func (f *Firestore) collectionName(name string) string {
	return CollectionName(f.prefix, name)
}

// CollectionName returns the collection name used for name under prefix
func CollectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (f *Firestore) Claim() interfaces.ClaimRepository {
	return f.claims
}

func (f *Firestore) Image() interfaces.ImageRepository {
	return f.images
}

func (f *Firestore) History() interfaces.HistoryRepository {
	return f.history
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.users
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
