package brief

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

// Service writes an assessor brief for a claim
type Service interface {
	Generate(ctx context.Context, claim *model.Claim, images []*model.ClaimImage) (*model.AssessorBrief, error)
}

type client struct {
	llmClient      gollem.LLMClient
	currencySymbol string
}

type Option func(*client)

// WithCurrencySymbol sets the symbol used when rendering amounts in the prompt
func WithCurrencySymbol(symbol string) Option {
	return func(c *client) {
		c.currencySymbol = symbol
	}
}

func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:      llmClient,
		currencySymbol: model.DefaultCurrencySymbol,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) Generate(ctx context.Context, claim *model.Claim, images []*model.ClaimImage) (*model.AssessorBrief, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(c.buildPrompt(claim, images)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate assessor brief", goerr.V("claim_id", claim.ID))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("assessor brief generation returned empty result", goerr.V("claim_id", claim.ID))
	}

	var out model.AssessorBrief
	if err := json.Unmarshal([]byte(resp.Texts[0]), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to parse assessor brief JSON",
			goerr.V("claim_id", claim.ID),
			goerr.V("response", resp.Texts[0]),
		)
	}
	if out.RiskFlags == nil {
		out.RiskFlags = []string{}
	}
	return &out, nil
}

const systemPrompt = `You help insurance assessors review vehicle damage claims.
Read the claim narrative and the automated image analysis, then produce:
- summary: two or three plain sentences describing the incident and the damage.
- risk_flags: short phrases for anything an assessor should double check, such as a high AI generated likelihood, a claimed amount far above the repair estimate, or an incident date inconsistent with the narrative. Empty when nothing stands out.
- recommended_action: one of "approve", "reject" or "investigate", followed by a short reason.
The automated analysis is advisory. Never invent facts that are not in the input.`

func (c *client) buildPrompt(claim *model.Claim, images []*model.ClaimImage) string {
	var sb strings.Builder

	sb.WriteString("## Claim\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", claim.Title)
	fmt.Fprintf(&sb, "Policy: %s (%s)\n", claim.PolicyNumber, claim.PolicyholderName)
	fmt.Fprintf(&sb, "Vehicle: %s %s", claim.VehicleMake, claim.VehicleModel)
	if claim.VehicleYear > 0 {
		fmt.Fprintf(&sb, " (%d)", claim.VehicleYear)
	}
	fmt.Fprintf(&sb, ", registration %s\n", claim.RegistrationNumber)
	fmt.Fprintf(&sb, "Incident: %s", claim.IncidentDate.Format("2006-01-02"))
	if claim.IncidentLocation != "" {
		fmt.Fprintf(&sb, " at %s", claim.IncidentLocation)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Claimed amount: %s\n", model.FormatAmount(claim.ClaimedAmount, c.currencySymbol))
	fmt.Fprintf(&sb, "Narrative: %s\n\n", claim.Description)

	sb.WriteString("## Images\n\n")
	if len(images) == 0 {
		sb.WriteString("No images were uploaded.\n")
	}
	for _, img := range images {
		fmt.Fprintf(&sb, "- %s", img.FileName)
		if img.Analysis != nil {
			fmt.Fprintf(&sb, ": AI generated likelihood %.2f. %s", img.Analysis.AIGeneratedLikelihood, img.Analysis.Description)
		}
		sb.WriteString("\n")
	}

	if claim.Analysis != nil && claim.Analysis.Estimate != nil {
		est := claim.Analysis.Estimate
		sb.WriteString("\n## Repair estimate\n\n")
		for _, it := range est.Items {
			fmt.Fprintf(&sb, "- %s", it.Part)
			if it.Severity != "" {
				fmt.Fprintf(&sb, " (%s)", it.Severity)
			}
			if it.Cost != "" {
				fmt.Fprintf(&sb, ": %s", it.Cost)
			}
			sb.WriteString("\n")
		}
		if est.TotalAmount > 0 {
			fmt.Fprintf(&sb, "Total: %s\n", model.FormatAmount(est.TotalAmount, c.currencySymbol))
		}
	}
	if claim.AnalysisError != "" {
		fmt.Fprintf(&sb, "\nAutomated analysis failed: %s\n", claim.AnalysisError)
	}

	return sb.String()
}

func responseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "AssessorBrief",
		Description: "Brief handed to the assessor reviewing a vehicle damage claim",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"summary": {
				Type:        gollem.TypeString,
				Description: "Plain text summary of the incident and damage",
				Required:    true,
			},
			"risk_flags": {
				Type:        gollem.TypeArray,
				Description: "Short phrases naming points the assessor should verify",
				Items: &gollem.Parameter{
					Type: gollem.TypeString,
				},
				Required: true,
			},
			"recommended_action": {
				Type:        gollem.TypeString,
				Description: "approve, reject or investigate, followed by a short reason",
				Required:    true,
			},
		},
	}
}
