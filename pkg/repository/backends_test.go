package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/repository/firestore"
	"github.com/secmon-lab/claimdesk/pkg/repository/memory"
	"github.com/secmon-lab/claimdesk/pkg/repository/postgres"
)

type repoFactory func(t *testing.T) interfaces.Repository

// forEachBackend runs fn against memory and, when configured, Firestore and Postgres
func forEachBackend(t *testing.T, fn func(t *testing.T, newRepo repoFactory)) {
	t.Run("Memory", func(t *testing.T) {
		fn(t, func(t *testing.T) interfaces.Repository {
			return memory.New()
		})
	})

	t.Run("Firestore", func(t *testing.T) {
		projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
		if projectID == "" {
			t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
		}
		databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

		fn(t, func(t *testing.T) interfaces.Repository {
			prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
			repo, err := firestore.New(context.Background(), projectID, databaseID, firestore.WithCollectionPrefix(prefix))
			gt.NoError(t, err).Required()
			t.Cleanup(func() {
				gt.NoError(t, repo.Close())
			})
			return repo
		})
	})

	t.Run("Postgres", func(t *testing.T) {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			t.Skip("TEST_POSTGRES_DSN not set")
		}

		fn(t, func(t *testing.T) interfaces.Repository {
			ctx := context.Background()
			repo, err := postgres.New(ctx, dsn)
			gt.NoError(t, err).Required()
			gt.NoError(t, repo.EnsureSchema(ctx)).Required()
			t.Cleanup(func() {
				gt.NoError(t, repo.Close())
			})
			return repo
		})
	})
}

// newClaim returns a claim with unique IDs so shared hosted backends do not collide
func newClaim(claimantID string, status types.ClaimStatus) *model.Claim {
	return &model.Claim{
		ID:                 model.NewClaimID(),
		ClaimantID:         claimantID,
		Title:              "Rear bumper dent",
		PolicyNumber:       "POL-1001",
		PolicyholderName:   "Asha Rao",
		VehicleMake:        "Maruti",
		VehicleModel:       "Swift",
		VehicleYear:        2019,
		RegistrationNumber: "KA01AB1234",
		IncidentDate:       time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second),
		IncidentLocation:   "Bengaluru",
		Description:        "Reversed into a pole",
		ClaimedAmount:      12000,
		Status:             status,
	}
}

func uniqueUser(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
