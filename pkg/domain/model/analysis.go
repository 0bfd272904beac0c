package model

import "github.com/secmon-lab/claimdesk/pkg/domain/types"

// ImageAnalysis is the analyzer's view of a single image
type ImageAnalysis struct {
	Description           string            `json:"description" firestore:"description"`
	AIGeneratedLikelihood float64           `json:"ai_generated_likelihood" firestore:"ai_generated_likelihood"`
	Reasoning             string            `json:"reasoning,omitempty" firestore:"reasoning"`
	Raw                   string            `json:"raw,omitempty" firestore:"raw"`
	ParseStatus           types.ParseStatus `json:"parse_status" firestore:"parse_status"`
	ParseError            string            `json:"parse_error,omitempty" firestore:"parse_error"`
}

// DamageItem is one row of a damage estimate
type DamageItem struct {
	Part     string `json:"part" firestore:"part"`
	Severity string `json:"severity,omitempty" firestore:"severity"`
	// Cost is the currency literal as reported, Amount its whole-unit value when parseable
	Cost   string `json:"cost,omitempty" firestore:"cost"`
	Amount int64  `json:"amount,omitempty" firestore:"amount"`
}

// DamageEstimate is the analyzer's repair estimate
type DamageEstimate struct {
	Items       []DamageItem      `json:"items" firestore:"items"`
	TotalCost   string            `json:"total_cost,omitempty" firestore:"total_cost"`
	TotalAmount int64             `json:"total_amount,omitempty" firestore:"total_amount"`
	Raw         string            `json:"raw,omitempty" firestore:"raw"`
	ParseStatus types.ParseStatus `json:"parse_status" firestore:"parse_status"`
	ParseError  string            `json:"parse_error,omitempty" firestore:"parse_error"`
}

// ClaimAnalysis is the comprehensive analysis stored on a claim
type ClaimAnalysis struct {
	// Image is the per-image result with the highest AI generated likelihood
	Image    *ImageAnalysis  `json:"image,omitempty" firestore:"image"`
	ImageID  ImageID         `json:"image_id,omitempty" firestore:"image_id"`
	Estimate *DamageEstimate `json:"estimate,omitempty" firestore:"estimate"`
}

func (a *ClaimAnalysis) Copy() *ClaimAnalysis {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Image != nil {
		img := *a.Image
		cp.Image = &img
	}
	if a.Estimate != nil {
		est := *a.Estimate
		est.Items = append([]DamageItem(nil), a.Estimate.Items...)
		cp.Estimate = &est
	}
	return &cp
}

// DamageComponent is one detected vehicle component from the admin analysis
type DamageComponent struct {
	Name       string  `json:"name"`
	Damaged    bool    `json:"damaged"`
	Severity   string  `json:"severity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// DamageComponentReport is the admin component analysis for one image
type DamageComponentReport struct {
	Components  []DamageComponent `json:"components"`
	Raw         string            `json:"raw,omitempty"`
	ParseStatus types.ParseStatus `json:"parse_status"`
	ParseError  string            `json:"parse_error,omitempty"`
}

// AssessorBrief is an LLM summary handed to the assessor
type AssessorBrief struct {
	Summary           string   `json:"summary" firestore:"summary"`
	RiskFlags         []string `json:"risk_flags" firestore:"risk_flags"`
	RecommendedAction string   `json:"recommended_action" firestore:"recommended_action"`
}

// MostSuspicious returns the analysis with the highest AI generated likelihood.
// Images without analysis are skipped; nil is returned when none have one.
func MostSuspicious(images []*ClaimImage) *ClaimImage {
	var best *ClaimImage
	for _, img := range images {
		if img == nil || img.Analysis == nil {
			continue
		}
		if best == nil || img.Analysis.AIGeneratedLikelihood > best.Analysis.AIGeneratedLikelihood {
			best = img
		}
	}
	return best
}
