package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/secmon-lab/claimdesk/pkg/service/brief"
	"github.com/secmon-lab/claimdesk/pkg/service/notify"
	"github.com/secmon-lab/claimdesk/pkg/utils/errutil"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

// maxBlobBytes bounds how much of a stored image is read back for analysis
const maxBlobBytes = 64 << 20

var errNoImages = errors.New("no images to analyze")

type AnalysisUseCase struct {
	repo      interfaces.Repository
	blobs     interfaces.BlobStore
	analyzer  analyzer.Service
	publisher interfaces.EventPublisher
	notifier  notify.Service
	brief     brief.Service
}

func NewAnalysisUseCase(repo interfaces.Repository, blobs interfaces.BlobStore, svc analyzer.Service, publisher interfaces.EventPublisher, notifier notify.Service, briefSvc brief.Service) *AnalysisUseCase {
	return &AnalysisUseCase{
		repo:      repo,
		blobs:     blobs,
		analyzer:  svc,
		publisher: publisher,
		notifier:  notifier,
		brief:     briefSvc,
	}
}

// Run drives one claim through AI review. Analyzer failures are recorded on the
// claim and never returned; only storage failures are.
func (uc *AnalysisUseCase) Run(ctx context.Context, claimID model.ClaimID) error {
	ctx = logging.With(ctx, logging.From(ctx).With("claim_id", claimID))
	logger := logging.From(ctx)

	claim, err := uc.repo.Claim().Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrClaimNotFound, "claim to analyze not found", goerr.V(ClaimIDKey, claimID))
		}
		return goerr.Wrap(err, "failed to get claim", goerr.V(ClaimIDKey, claimID))
	}

	switch claim.Status {
	case types.ClaimStatusSubmitted:
		if uc.analyzer == nil {
			return skipIfRaced(ctx, uc.transition(ctx, claim, model.EventSkipAnalysis, "analysis disabled", ""))
		}
		if err := uc.transition(ctx, claim, model.EventStartAnalysis, "analysis started", ""); err != nil {
			return skipIfRaced(ctx, err)
		}
	case types.ClaimStatusAssessorReview:
		if uc.analyzer == nil {
			return goerr.Wrap(ErrAnalyzerDisabled, "cannot reanalyze", goerr.V(ClaimIDKey, claimID))
		}
		if err := uc.transition(ctx, claim, model.EventReanalyze, "reanalysis requested", ""); err != nil {
			return skipIfRaced(ctx, err)
		}
	case types.ClaimStatusAIReview:
		if uc.analyzer == nil {
			return skipIfRaced(ctx, uc.transition(ctx, claim, model.EventFinishAnalysis, "analysis disabled", ""))
		}
		logger.Info("resuming interrupted analysis")
	default:
		logger.Info("claim is closed, skipping analysis", "status", claim.Status)
		return nil
	}

	images, err := uc.repo.Image().ListByClaim(ctx, claimID)
	if err != nil {
		return goerr.Wrap(err, "failed to list claim images", goerr.V(ClaimIDKey, claimID))
	}

	analysis, analysisErr := uc.analyze(ctx, images)

	// Re-read so concurrent assignment is not overwritten
	claim, err = uc.repo.Claim().Get(ctx, claimID)
	if err != nil {
		return goerr.Wrap(err, "failed to reload claim", goerr.V(ClaimIDKey, claimID))
	}
	if claim.Status != types.ClaimStatusAIReview {
		logger.Warn("claim left ai_review during analysis, discarding result", "status", claim.Status)
		return nil
	}

	note := "analysis completed"
	if analysisErr != nil {
		_ = errutil.Handle(ctx, analysisErr, "claim analysis failed")
		claim.AnalysisError = analysisErr.Error()
		note = "analysis failed: " + analysisErr.Error()
		if analysis != nil {
			claim.Analysis = analysis
		}
	} else {
		claim.Analysis = analysis
		claim.AnalysisError = ""
	}

	if uc.brief != nil {
		// the brief reads per-image results, so refresh them after SetAnalysis
		if refreshed, err := uc.repo.Image().ListByClaim(ctx, claimID); err == nil {
			images = refreshed
		}
		b, err := uc.brief.Generate(ctx, claim, images)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to generate assessor brief")
		} else {
			claim.Brief = b
		}
	}

	if err := uc.transition(ctx, claim, model.EventFinishAnalysis, note, types.ClaimEventAnalysisCompleted); err != nil {
		return skipIfRaced(ctx, err)
	}
	return nil
}

// skipIfRaced drops a transition another writer got to first
func skipIfRaced(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, model.ErrInvalidTransition) {
		logging.From(ctx).Info("claim status changed concurrently, skipping", "error", err.Error())
		return nil
	}
	return err
}

// analyze runs the analyzer over every image. The first image goes through the
// comprehensive call so the repair estimate is fetched alongside it.
func (uc *AnalysisUseCase) analyze(ctx context.Context, images []*model.ClaimImage) (*model.ClaimAnalysis, error) {
	if len(images) == 0 {
		return nil, errNoImages
	}

	result := &model.ClaimAnalysis{}
	for i, img := range images {
		payload, err := uc.loadImage(ctx, img)
		if err != nil {
			return nil, err
		}

		var a *model.ImageAnalysis
		if i == 0 {
			c, err := uc.analyzer.Comprehensive(ctx, payload)
			if err != nil {
				return nil, goerr.Wrap(err, "comprehensive analysis failed", goerr.V(ImageIDKey, img.ID))
			}
			a = c.Image
			result.Estimate = c.Estimate
		} else {
			a, err = uc.analyzer.Explain(ctx, payload)
			if err != nil {
				return result, goerr.Wrap(err, "image analysis failed", goerr.V(ImageIDKey, img.ID))
			}
		}

		if err := uc.repo.Image().SetAnalysis(ctx, img.ID, a); err != nil {
			return result, goerr.Wrap(err, "failed to save image analysis", goerr.V(ImageIDKey, img.ID))
		}
		img.Analysis = a
		// the stale sweep keys on UpdatedAt
		if err := uc.repo.Claim().Touch(ctx, img.ClaimID); err != nil {
			logging.From(ctx).Warn("failed to touch claim", "error", err.Error())
		}
		if a.ParseStatus == types.ParseStatusFallback {
			logging.From(ctx).Warn("analyzer response could not be parsed",
				"image_id", img.ID,
				"parse_error", a.ParseError)
		}
	}

	if top := model.MostSuspicious(images); top != nil {
		result.Image = top.Analysis
		result.ImageID = top.ID
	}
	return result, nil
}

func (uc *AnalysisUseCase) loadImage(ctx context.Context, img *model.ClaimImage) (analyzer.Image, error) {
	if uc.blobs == nil {
		return analyzer.Image{}, goerr.New("blob store is not configured")
	}
	rc, err := uc.blobs.Get(ctx, img.ObjectKey)
	if err != nil {
		return analyzer.Image{}, goerr.Wrap(err, "failed to open image", goerr.V(ImageIDKey, img.ID), goerr.V("key", img.ObjectKey))
	}
	defer safe.Close(ctx, rc)

	data, err := safe.ReadAll(rc, maxBlobBytes)
	if err != nil {
		return analyzer.Image{}, goerr.Wrap(err, "failed to read image", goerr.V(ImageIDKey, img.ID))
	}
	return analyzer.Image{FileName: img.FileName, ContentType: img.ContentType, Data: data}, nil
}

// transition fires event, persists the claim with a system history row and
// publishes the change. extra names an additional event type to publish.
func (uc *AnalysisUseCase) transition(ctx context.Context, claim *model.Claim, event model.LifecycleEvent, note string, extra types.ClaimEventType) error {
	prev, err := claim.Transition(event)
	if err != nil {
		return goerr.Wrap(err, "analysis transition rejected", goerr.V(ClaimIDKey, claim.ID))
	}

	updated, err := uc.repo.Claim().Update(ctx, claim, prev)
	if err != nil {
		return goerr.Wrap(err, "failed to update claim", goerr.V(ClaimIDKey, claim.ID))
	}

	h := model.NewStatusHistory(claim.ID, prev, updated.Status, model.SystemActorID, note)
	if err := uc.repo.History().Append(ctx, h); err != nil {
		return goerr.Wrap(err, "failed to append claim history", goerr.V(ClaimIDKey, claim.ID))
	}

	if extra != "" {
		uc.publisher.Publish(ctx, model.NewClaimEvent(extra, updated))
	}
	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventStatusChanged, updated))

	if updated.Status == types.ClaimStatusAssessorReview {
		if err := uc.notifier.ClaimReady(ctx, updated); err != nil {
			_ = errutil.Handle(ctx, err, "failed to notify claim ready")
		}
	}

	logging.From(ctx).Info("claim status changed",
		"from", prev,
		"to", updated.Status,
		"event", event)
	return nil
}
