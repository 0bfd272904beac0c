package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

func TestClaimRepository(t *testing.T) {
	forEachBackend(t, runClaimRepositoryTest)
}

func runClaimRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Run("Create then Get returns the claim", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := newClaim(uniqueUser("claimant"), types.ClaimStatusSubmitted)
		gt.NoError(t, repo.Claim().Create(ctx, c)).Required()
		gt.Bool(t, c.CreatedAt.IsZero()).False()

		got, err := repo.Claim().Get(ctx, c.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(c.ID)
		gt.Value(t, got.Title).Equal(c.Title)
		gt.Value(t, got.ClaimedAmount).Equal(c.ClaimedAmount)
		gt.Value(t, got.Status).Equal(types.ClaimStatusSubmitted)
		gt.Value(t, got.VehicleYear).Equal(2019)
		gt.Bool(t, got.IncidentDate.Equal(c.IncidentDate)).True()
		gt.Value(t, got.Analysis).Nil()
		gt.Value(t, got.ApprovedAmount).Nil()
	})

	t.Run("Get returns ErrNotFound for missing claim", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Claim().Get(context.Background(), model.NewClaimID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Update stores analysis and decision", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := newClaim(uniqueUser("claimant"), types.ClaimStatusSubmitted)
		gt.NoError(t, repo.Claim().Create(ctx, c)).Required()

		approved := int64(9000)
		decidedAt := time.Now().UTC().Truncate(time.Second)
		c.Status = types.ClaimStatusCompleted
		c.AssessorID = "assessor-1"
		c.Decision = types.DecisionApproved
		c.ApprovedAmount = &approved
		c.DecidedAt = &decidedAt
		c.AssessorNotes = "Minor damage"
		c.Analysis = &model.ClaimAnalysis{
			Image: &model.ImageAnalysis{Description: "dent", AIGeneratedLikelihood: 0.1, ParseStatus: types.ParseStatusSchema},
			Estimate: &model.DamageEstimate{
				Items:       []model.DamageItem{{Part: "bumper", Cost: "₹9,000", Amount: 9000}},
				TotalCost:   "₹9,000",
				TotalAmount: 9000,
				ParseStatus: types.ParseStatusPattern,
			},
		}
		c.Brief = &model.AssessorBrief{Summary: "ok", RiskFlags: []string{}, RecommendedAction: "approve"}

		updated, err := repo.Claim().Update(ctx, c, types.ClaimStatusSubmitted)
		gt.NoError(t, err).Required()
		gt.Bool(t, updated.CreatedAt.Equal(c.CreatedAt)).True()

		got, err := repo.Claim().Get(ctx, c.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ClaimStatusCompleted)
		gt.Value(t, got.AssessorID).Equal("assessor-1")
		gt.Value(t, got.Decision).Equal(types.DecisionApproved)
		gt.Value(t, *got.ApprovedAmount).Equal(int64(9000))
		gt.Value(t, got.AssessorNotes).Equal("Minor damage")
		gt.Value(t, got.Analysis.Estimate.Items[0].Part).Equal("bumper")
		gt.Value(t, got.Analysis.Image.ParseStatus).Equal(types.ParseStatusSchema)
		gt.Value(t, got.Brief.RecommendedAction).Equal("approve")
	})

	t.Run("Update returns ErrNotFound for missing claim", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Claim().Update(context.Background(), newClaim("x", types.ClaimStatusSubmitted), types.ClaimStatusSubmitted)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Update rejects a claim whose status moved on", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := newClaim(uniqueUser("claimant"), types.ClaimStatusAssessorReview)
		gt.NoError(t, repo.Claim().Create(ctx, c)).Required()

		first := c.Copy()
		first.Status = types.ClaimStatusCompleted
		first.Decision = types.DecisionApproved
		_, err := repo.Claim().Update(ctx, first, types.ClaimStatusAssessorReview)
		gt.NoError(t, err).Required()

		second := c.Copy()
		second.Status = types.ClaimStatusRejected
		second.Decision = types.DecisionRejected
		_, err = repo.Claim().Update(ctx, second, types.ClaimStatusAssessorReview)
		gt.Error(t, err).Is(model.ErrInvalidTransition)

		got, err := repo.Claim().Get(ctx, c.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ClaimStatusCompleted)
		gt.Value(t, got.Decision).Equal(types.DecisionApproved)
	})

	t.Run("concurrent Updates from the same status let exactly one win", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := newClaim(uniqueUser("claimant"), types.ClaimStatusAssessorReview)
		gt.NoError(t, repo.Claim().Create(ctx, c)).Required()

		const writers = 8
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := c.Copy()
				next.Status = types.ClaimStatusCompleted
				if i%2 == 1 {
					next.Status = types.ClaimStatusRejected
				}
				if _, err := repo.Claim().Update(ctx, next, types.ClaimStatusAssessorReview); err == nil {
					wins.Add(1)
				} else {
					gt.Error(t, err).Is(model.ErrInvalidTransition)
				}
			}()
		}
		wg.Wait()
		gt.Value(t, wins.Load()).Equal(int32(1))
	})

	t.Run("Touch refreshes UpdatedAt only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c := newClaim(uniqueUser("claimant"), types.ClaimStatusAIReview)
		c.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
		gt.NoError(t, repo.Claim().Create(ctx, c)).Required()

		gt.NoError(t, repo.Claim().Touch(ctx, c.ID)).Required()

		got, err := repo.Claim().Get(ctx, c.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.UpdatedAt.After(c.CreatedAt)).True()
		gt.Value(t, got.Status).Equal(types.ClaimStatusAIReview)
		gt.Value(t, got.Title).Equal(c.Title)
	})

	t.Run("Touch returns ErrNotFound for missing claim", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Claim().Touch(context.Background(), model.NewClaimID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List filters by status and claimant", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		claimant := uniqueUser("claimant")
		other := uniqueUser("other")

		c1 := newClaim(claimant, types.ClaimStatusSubmitted)
		c2 := newClaim(claimant, types.ClaimStatusAssessorReview)
		c3 := newClaim(other, types.ClaimStatusAssessorReview)
		for _, c := range []*model.Claim{c1, c2, c3} {
			gt.NoError(t, repo.Claim().Create(ctx, c)).Required()
		}

		mine, err := repo.Claim().List(ctx, interfaces.WithClaimant(claimant))
		gt.NoError(t, err).Required()
		gt.Array(t, mine).Length(2)

		mineInReview, err := repo.Claim().List(ctx,
			interfaces.WithClaimant(claimant),
			interfaces.WithStatus(types.ClaimStatusAssessorReview))
		gt.NoError(t, err).Required()
		gt.Array(t, mineInReview).Length(1)
		gt.Value(t, mineInReview[0].ID).Equal(c2.ID)
	})
}
