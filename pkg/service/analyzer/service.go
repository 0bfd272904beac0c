package analyzer

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

var (
	// ErrAnalyzerUnavailable wraps network failures and error statuses from the analysis service
	ErrAnalyzerUnavailable = goerr.New("analyzer unavailable")
	// ErrUnexpectedResponse means a successful response had no usable payload
	ErrUnexpectedResponse = goerr.New("unexpected analyzer response")
)

// Image is an image payload sent to the analysis service
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Comprehensive is the combined result of Explain and CheckDamage
type Comprehensive struct {
	Image    *model.ImageAnalysis
	Estimate *model.DamageEstimate
}

// Service is the analysis service as seen by use cases
type Service interface {
	Explain(ctx context.Context, img Image) (*model.ImageAnalysis, error)
	CheckDamage(ctx context.Context) (*model.DamageEstimate, error)
	Comprehensive(ctx context.Context, img Image) (*Comprehensive, error)
	AnalyzeDamageComponents(ctx context.Context, img Image) (*model.DamageComponentReport, error)
	RenderDamage(ctx context.Context, img Image) (*RenderedImage, error)
	ListDamageComponents(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// RenderedImage is a damage overlay produced by the analysis service
type RenderedImage struct {
	ContentType string
	Data        []byte
}
