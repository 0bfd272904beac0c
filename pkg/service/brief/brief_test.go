package brief_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/service/brief"
)

type mockSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	session *mockSession
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.session, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func sampleClaim() *model.Claim {
	return &model.Claim{
		ID:                 model.NewClaimID(),
		Title:              "Rear-ended at signal",
		PolicyNumber:       "POL-1",
		PolicyholderName:   "Asha Rao",
		VehicleMake:        "Maruti",
		VehicleModel:       "Swift",
		VehicleYear:        2019,
		RegistrationNumber: "KA01AB1234",
		IncidentDate:       time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Description:        "Hit from behind while stopped",
		ClaimedAmount:      45000,
		Analysis: &model.ClaimAnalysis{
			Estimate: &model.DamageEstimate{
				Items:       []model.DamageItem{{Part: "Rear bumper", Severity: "moderate", Cost: "₹12,000"}},
				TotalAmount: 12000,
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	var prompt string
	llm := &mockLLMClient{session: &mockSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			if txt, ok := input[0].(gollem.Text); ok {
				prompt = string(txt)
			}
			return &gollem.Response{Texts: []string{
				`{"summary":"Rear collision.","risk_flags":["claimed amount well above estimate"],"recommended_action":"investigate: amount mismatch"}`,
			}}, nil
		},
	}}

	svc, err := brief.New(llm)
	gt.NoError(t, err).Required()

	images := []*model.ClaimImage{{FileName: "rear.jpg", Analysis: &model.ImageAnalysis{AIGeneratedLikelihood: 0.1, Description: "dented bumper"}}}
	out, err := svc.Generate(context.Background(), sampleClaim(), images)
	gt.NoError(t, err).Required()
	gt.Value(t, out.Summary).Equal("Rear collision.")
	gt.Array(t, out.RiskFlags).Length(1)
	gt.Bool(t, strings.HasPrefix(out.RecommendedAction, "investigate")).True()

	gt.String(t, prompt).Contains("₹45,000")
	gt.String(t, prompt).Contains("Rear bumper")
	gt.String(t, prompt).Contains("rear.jpg")
}

func TestGenerateErrors(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		_, err := brief.New(nil)
		gt.Error(t, err)
	})

	t.Run("LLM failure", func(t *testing.T) {
		llm := &mockLLMClient{session: &mockSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return nil, goerr.New("quota exceeded")
			},
		}}
		svc, err := brief.New(llm)
		gt.NoError(t, err).Required()
		_, err = svc.Generate(context.Background(), sampleClaim(), nil)
		gt.Error(t, err)
	})

	t.Run("non JSON answer", func(t *testing.T) {
		llm := &mockLLMClient{session: &mockSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{"sure, here is a brief"}}, nil
			},
		}}
		svc, err := brief.New(llm)
		gt.NoError(t, err).Required()
		_, err = svc.Generate(context.Background(), sampleClaim(), nil)
		gt.Error(t, err)
	})
}

func TestGenerate_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}
	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := brief.New(llmClient)
	gt.NoError(t, err).Required()

	out, err := svc.Generate(ctx, sampleClaim(), nil)
	gt.NoError(t, err).Required()
	gt.String(t, out.Summary).NotEqual("")
	gt.String(t, out.RecommendedAction).NotEqual("")
}
