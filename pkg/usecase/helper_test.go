package usecase_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/repository/memory"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func as(role types.UserRole, sub string) context.Context {
	token := auth.NewToken(sub, sub+"@example.com", sub, role, time.Hour)
	return auth.ContextWithToken(context.Background(), token)
}

func validInput() usecase.SubmitClaimInput {
	return usecase.SubmitClaimInput{
		Title:              "Rear bumper dent",
		PolicyNumber:       "POL-001",
		PolicyholderName:   "Asha Rao",
		VehicleMake:        "Maruti",
		VehicleModel:       "Swift",
		VehicleYear:        2021,
		RegistrationNumber: "ka01ab1234",
		IncidentDate:       time.Now().Add(-48 * time.Hour),
		IncidentLocation:   "Bengaluru",
		Description:        "Reversed into a pillar",
		ClaimedAmount:      25000,
	}
}

func seedClaim(t *testing.T, repo *memory.Memory, owner string, status types.ClaimStatus) *model.Claim {
	t.Helper()
	c := &model.Claim{
		ID:            model.NewClaimID(),
		ClaimantID:    owner,
		Title:         "seeded " + string(status),
		ClaimedAmount: 1000,
		Status:        status,
	}
	gt.NoError(t, repo.Claim().Create(context.Background(), c)).Required()
	return c
}

func seedUser(t *testing.T, repo *memory.Memory, id string, role types.UserRole) *model.User {
	t.Helper()
	u := &model.User{ID: id, Email: id + "@example.com", Name: id, Role: role}
	gt.NoError(t, repo.User().Put(context.Background(), u)).Required()
	return u
}

func upload(t *testing.T, uc *usecase.UseCases, ctx context.Context, claimID model.ClaimID, name string) *model.ClaimImage {
	t.Helper()
	img, err := uc.Claim.UploadImage(ctx, claimID, usecase.UploadImageInput{
		FileName: name,
		Size:     int64(len(pngHeader)),
		Data:     bytes.NewReader(pngHeader),
	})
	gt.NoError(t, err).Required()
	return img
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []model.ClaimID
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, id model.ClaimID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return nil
}

func (d *recordingDispatcher) dispatched() []model.ClaimID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.ClaimID(nil), d.ids...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ClaimEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev model.ClaimEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []types.ClaimEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.ClaimEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	ready   []model.ClaimID
	decided []model.ClaimID
}

func (n *recordingNotifier) ClaimReady(ctx context.Context, c *model.Claim) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, c.ID)
	return nil
}

func (n *recordingNotifier) ClaimDecided(ctx context.Context, c *model.Claim) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decided = append(n.decided, c.ID)
	return nil
}

// fakeAnalyzer answers each image by file name
type fakeAnalyzer struct {
	mu          sync.Mutex
	likelihoods map[string]float64
	err         error
	calls       int
}

func (f *fakeAnalyzer) explain(img analyzer.Image) (*model.ImageAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.ImageAnalysis{
		Description:           "photo of " + img.FileName,
		AIGeneratedLikelihood: f.likelihoods[img.FileName],
		ParseStatus:           types.ParseStatusSchema,
	}, nil
}

func (f *fakeAnalyzer) Explain(ctx context.Context, img analyzer.Image) (*model.ImageAnalysis, error) {
	return f.explain(img)
}

func (f *fakeAnalyzer) CheckDamage(ctx context.Context) (*model.DamageEstimate, error) {
	return &model.DamageEstimate{
		Items:       []model.DamageItem{{Part: "bumper", Cost: "₹12,000", Amount: 12000}},
		TotalCost:   "₹12,000",
		TotalAmount: 12000,
		ParseStatus: types.ParseStatusSchema,
	}, nil
}

func (f *fakeAnalyzer) Comprehensive(ctx context.Context, img analyzer.Image) (*analyzer.Comprehensive, error) {
	a, err := f.explain(img)
	if err != nil {
		return nil, err
	}
	est, _ := f.CheckDamage(ctx)
	return &analyzer.Comprehensive{Image: a, Estimate: est}, nil
}

func (f *fakeAnalyzer) AnalyzeDamageComponents(ctx context.Context, img analyzer.Image) (*model.DamageComponentReport, error) {
	return &model.DamageComponentReport{
		Components:  []model.DamageComponent{{Name: "bumper", Damaged: true, Severity: "moderate"}},
		ParseStatus: types.ParseStatusSchema,
	}, nil
}

func (f *fakeAnalyzer) RenderDamage(ctx context.Context, img analyzer.Image) (*analyzer.RenderedImage, error) {
	return &analyzer.RenderedImage{ContentType: "image/png", Data: img.Data}, nil
}

func (f *fakeAnalyzer) ListDamageComponents(ctx context.Context) ([]string, error) {
	return []string{"bumper", "hood"}, nil
}

func (f *fakeAnalyzer) Ping(ctx context.Context) error {
	return f.err
}

type fakeBrief struct {
	err error
}

func (b *fakeBrief) Generate(ctx context.Context, c *model.Claim, images []*model.ClaimImage) (*model.AssessorBrief, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &model.AssessorBrief{
		Summary:           c.Title,
		RiskFlags:         []string{},
		RecommendedAction: "approve",
	}, nil
}

// lockstepRepository holds the first n claim reads until all of them have
// happened, so every caller acts on the same snapshot
type lockstepRepository struct {
	*memory.Memory
	claims *lockstepClaims
}

func newLockstepRepository(base *memory.Memory, n int32) *lockstepRepository {
	return &lockstepRepository{
		Memory: base,
		claims: &lockstepClaims{
			ClaimRepository: base.Claim(),
			n:               n,
			release:         make(chan struct{}),
		},
	}
}

func (r *lockstepRepository) Claim() interfaces.ClaimRepository {
	return r.claims
}

type lockstepClaims struct {
	interfaces.ClaimRepository
	n       int32
	arrived atomic.Int32
	release chan struct{}
}

func (c *lockstepClaims) Get(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	claim, err := c.ClaimRepository.Get(ctx, id)
	if k := c.arrived.Add(1); k <= c.n {
		if k == c.n {
			close(c.release)
		}
		<-c.release
	}
	return claim, err
}

// requireChainedHistory checks every row starts where the previous one ended
func requireChainedHistory(t *testing.T, history []*model.StatusHistory, final types.ClaimStatus) {
	t.Helper()
	gt.A(t, history).Longer(0).Required()
	for i := 1; i < len(history); i++ {
		gt.V(t, history[i].FromStatus).Equal(history[i-1].ToStatus)
	}
	gt.V(t, history[len(history)-1].ToStatus).Equal(final)
}
