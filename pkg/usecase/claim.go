package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/config"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/service/notify"
	"github.com/secmon-lab/claimdesk/pkg/utils/errutil"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

type ClaimUseCase struct {
	repo            interfaces.Repository
	blobs           interfaces.BlobStore
	dispatcher      interfaces.AnalysisDispatcher
	publisher       interfaces.EventPublisher
	notifier        notify.Service
	policy          *config.ClaimPolicy
	analyzerEnabled bool
	now             func() time.Time
}

func NewClaimUseCase(repo interfaces.Repository, blobs interfaces.BlobStore, dispatcher interfaces.AnalysisDispatcher, publisher interfaces.EventPublisher, notifier notify.Service, policy *config.ClaimPolicy, analyzerEnabled bool) *ClaimUseCase {
	return &ClaimUseCase{
		repo:            repo,
		blobs:           blobs,
		dispatcher:      dispatcher,
		publisher:       publisher,
		notifier:        notifier,
		policy:          policy,
		analyzerEnabled: analyzerEnabled,
		now:             time.Now,
	}
}

// SubmitClaimInput carries the claimant supplied fields of a new claim
type SubmitClaimInput struct {
	Title              string    `json:"title"`
	PolicyNumber       string    `json:"policy_number"`
	PolicyholderName   string    `json:"policyholder_name"`
	VehicleMake        string    `json:"vehicle_make"`
	VehicleModel       string    `json:"vehicle_model"`
	VehicleYear        int       `json:"vehicle_year"`
	RegistrationNumber string    `json:"registration_number"`
	IncidentDate       time.Time `json:"incident_date"`
	IncidentLocation   string    `json:"incident_location"`
	Description        string    `json:"description"`
	ClaimedAmount      int64     `json:"claimed_amount"`
}

// SubmitClaim files a claim for the current claimant and schedules its analysis
func (uc *ClaimUseCase) SubmitClaim(ctx context.Context, input SubmitClaimInput) (*model.Claim, error) {
	token, err := requireRole(ctx, types.UserRoleClaimant, types.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	claim := &model.Claim{
		ID:                 model.NewClaimID(),
		ClaimantID:         token.Sub,
		Title:              strings.TrimSpace(input.Title),
		PolicyNumber:       strings.TrimSpace(input.PolicyNumber),
		PolicyholderName:   strings.TrimSpace(input.PolicyholderName),
		VehicleMake:        strings.TrimSpace(input.VehicleMake),
		VehicleModel:       strings.TrimSpace(input.VehicleModel),
		VehicleYear:        input.VehicleYear,
		RegistrationNumber: strings.ToUpper(strings.TrimSpace(input.RegistrationNumber)),
		IncidentDate:       input.IncidentDate,
		IncidentLocation:   strings.TrimSpace(input.IncidentLocation),
		Description:        strings.TrimSpace(input.Description),
		ClaimedAmount:      input.ClaimedAmount,
		Status:             types.ClaimStatusSubmitted,
	}
	if err := model.ValidateClaim(claim, uc.now()); err != nil {
		return nil, err
	}

	if err := uc.repo.Claim().Create(ctx, claim); err != nil {
		return nil, goerr.Wrap(err, "failed to create claim", goerr.V(ClaimIDKey, claim.ID))
	}

	h := model.NewStatusHistory(claim.ID, "", types.ClaimStatusSubmitted, token.Sub, "claim submitted")
	if err := uc.repo.History().Append(ctx, h); err != nil {
		return nil, goerr.Wrap(err, "failed to append claim history", goerr.V(ClaimIDKey, claim.ID))
	}

	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventSubmitted, claim))

	// A failed dispatch leaves the claim in submitted; the stale claim sweep retries it
	if err := uc.dispatcher.Dispatch(ctx, claim.ID); err != nil {
		_ = errutil.Handle(ctx, err, "failed to dispatch claim analysis")
	}

	logging.From(ctx).Info("claim submitted", "claim_id", claim.ID, "claimant_id", token.Sub)
	return claim, nil
}

// UploadImageInput is one uploaded file. Size may be -1 when unknown.
type UploadImageInput struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadImage stores an image for a claim owned by the caller
func (uc *ClaimUseCase) UploadImage(ctx context.Context, claimID model.ClaimID, input UploadImageInput) (*model.ClaimImage, error) {
	token, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if uc.blobs == nil {
		return nil, goerr.New("blob store is not configured")
	}

	claim, err := uc.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if token.Role != types.UserRoleAdmin && !claim.IsOwnedBy(token.Sub) {
		return nil, goerr.Wrap(ErrAccessDenied, "only the claimant may upload images",
			goerr.V(ClaimIDKey, claimID), goerr.V(UserIDKey, token.Sub))
	}
	if claim.Status.IsTerminal() {
		return nil, goerr.Wrap(ErrClaimClosed, "cannot upload to a closed claim",
			goerr.V(ClaimIDKey, claimID), goerr.V("status", claim.Status))
	}

	if input.Size > uc.policy.MaxImageBytes {
		return nil, imageTooLarge(claimID, input.Size, uc.policy.MaxImageBytes)
	}
	data, err := safe.ReadAll(input.Data, uc.policy.MaxImageBytes)
	if err != nil {
		if errors.Is(err, safe.ErrTooLarge) {
			return nil, imageTooLarge(claimID, input.Size, uc.policy.MaxImageBytes)
		}
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V(ClaimIDKey, claimID))
	}
	if len(data) == 0 {
		fields := model.FieldErrors{}
		fields.Add("file", "file is empty")
		return nil, goerr.Wrap(ErrInvalidInput, "empty upload", goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}

	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !uc.policy.AllowsImageType(contentType) {
		fields := model.FieldErrors{}
		fields.Add("file", "unsupported content type "+contentType)
		return nil, goerr.Wrap(ErrInvalidInput, "unsupported image type",
			goerr.V(ClaimIDKey, claimID),
			goerr.V("content_type", contentType),
			goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}

	existing, err := uc.repo.Image().ListByClaim(ctx, claimID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claim images", goerr.V(ClaimIDKey, claimID))
	}
	if len(existing) >= uc.policy.MaxImagesPerClaim {
		return nil, goerr.Wrap(ErrImageLimitReached, "claim already has the maximum number of images",
			goerr.V(ClaimIDKey, claimID), goerr.V("max", uc.policy.MaxImagesPerClaim))
	}

	img := &model.ClaimImage{
		ID:          model.NewImageID(),
		ClaimID:     claimID,
		FileName:    model.SanitizeFileName(input.FileName),
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  uc.now().UTC(),
	}
	img.ObjectKey = model.ImageObjectKey(claimID, img.ID, input.FileName)

	url, err := uc.blobs.Put(ctx, img.ObjectKey, contentType, bytes.NewReader(data), img.Size)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store image", goerr.V(ClaimIDKey, claimID), goerr.V("key", img.ObjectKey))
	}
	img.PublicURL = url

	if err := uc.repo.Image().Create(ctx, img); err != nil {
		// Rollback: remove the stored blob
		if delErr := uc.blobs.Delete(ctx, img.ObjectKey); delErr != nil {
			_ = errutil.Handle(ctx, delErr, "failed to remove orphaned image blob")
		}
		return nil, goerr.Wrap(err, "failed to record image", goerr.V(ClaimIDKey, claimID), goerr.V(ImageIDKey, img.ID))
	}

	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventImageUploaded, claim))
	logging.From(ctx).Info("claim image uploaded",
		"claim_id", claimID,
		"image_id", img.ID,
		"size", img.Size,
		"content_type", contentType)

	return img, nil
}

func imageTooLarge(claimID model.ClaimID, size, limit int64) error {
	fields := model.FieldErrors{}
	fields.Add("file", "file exceeds the size limit")
	return goerr.Wrap(ErrInvalidInput, "image too large",
		goerr.V(ClaimIDKey, claimID),
		goerr.V("size", size),
		goerr.V("limit", limit),
		goerr.V(model.FieldErrorsKey, map[string]string(fields)))
}

func (uc *ClaimUseCase) getClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	claim, err := uc.repo.Claim().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrClaimNotFound, "claim not found", goerr.V(ClaimIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V(ClaimIDKey, id))
	}
	return claim, nil
}

func (uc *ClaimUseCase) getVisibleClaim(ctx context.Context, id model.ClaimID) (*model.Claim, *auth.Token, error) {
	token, err := actorFrom(ctx)
	if err != nil {
		return nil, nil, err
	}
	claim, err := uc.getClaim(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !claim.VisibleTo(token.Sub, token.Role) {
		return nil, nil, goerr.Wrap(ErrAccessDenied, "claim is not visible to the caller",
			goerr.V(ClaimIDKey, id), goerr.V(UserIDKey, token.Sub))
	}
	return claim, token, nil
}

// GetClaim returns a claim the caller may see
func (uc *ClaimUseCase) GetClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	claim, _, err := uc.getVisibleClaim(ctx, id)
	return claim, err
}

// ListClaimsQuery holds the listing parameters as received from the client
type ListClaimsQuery struct {
	Search string
	Status string
	Sort   string
}

// ListClaims returns the claims visible to the caller, filtered and sorted
func (uc *ClaimUseCase) ListClaims(ctx context.Context, q ListClaimsQuery) ([]*model.Claim, error) {
	token, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	fields := model.FieldErrors{}
	var opts []interfaces.ListClaimOption
	if q.Status != "" {
		status, err := types.ParseClaimStatus(q.Status)
		if err != nil {
			fields.Add("status", "unknown status")
		} else {
			opts = append(opts, interfaces.WithStatus(status))
		}
	}
	sortKey, err := types.ParseSortKey(q.Sort)
	if err != nil {
		fields.Add("sort", "unknown sort key")
	}
	if len(fields) > 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid listing query", goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}

	if token.Role == types.UserRoleClaimant {
		opts = append(opts, interfaces.WithClaimant(token.Sub))
	}

	claims, err := uc.repo.Claim().List(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claims")
	}

	visible := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		if c.VisibleTo(token.Sub, token.Role) {
			visible = append(visible, c)
		}
	}

	return model.SortClaims(model.FilterClaims(visible, q.Search), sortKey), nil
}

// ListImages returns the images of a visible claim in upload order
func (uc *ClaimUseCase) ListImages(ctx context.Context, id model.ClaimID) ([]*model.ClaimImage, error) {
	if _, _, err := uc.getVisibleClaim(ctx, id); err != nil {
		return nil, err
	}
	images, err := uc.repo.Image().ListByClaim(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claim images", goerr.V(ClaimIDKey, id))
	}
	return images, nil
}

// ListHistory returns the status history of a visible claim, oldest first
func (uc *ClaimUseCase) ListHistory(ctx context.Context, id model.ClaimID) ([]*model.StatusHistory, error) {
	if _, _, err := uc.getVisibleClaim(ctx, id); err != nil {
		return nil, err
	}
	history, err := uc.repo.History().ListByClaim(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claim history", goerr.V(ClaimIDKey, id))
	}
	return history, nil
}

// AssignAssessor routes a claim to an assessor. Admin only.
func (uc *ClaimUseCase) AssignAssessor(ctx context.Context, id model.ClaimID, assessorID string) (*model.Claim, error) {
	if _, err := requireRole(ctx, types.UserRoleAdmin); err != nil {
		return nil, err
	}

	assessor, err := uc.repo.User().Get(ctx, assessorID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUserNotFound, "assessor not found", goerr.V(UserIDKey, assessorID))
		}
		return nil, goerr.Wrap(err, "failed to get assessor", goerr.V(UserIDKey, assessorID))
	}
	if assessor.Role != types.UserRoleAssessor {
		fields := model.FieldErrors{}
		fields.Add("assessor_id", "user is not an assessor")
		return nil, goerr.Wrap(ErrInvalidInput, "assignee is not an assessor",
			goerr.V(UserIDKey, assessorID),
			goerr.V("role", assessor.Role),
			goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}

	claim, err := uc.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status.IsTerminal() {
		return nil, goerr.Wrap(ErrClaimClosed, "cannot assign a closed claim", goerr.V(ClaimIDKey, id))
	}

	claim.AssessorID = assessor.ID
	updated, err := uc.repo.Claim().Update(ctx, claim, claim.Status)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assign assessor", goerr.V(ClaimIDKey, id))
	}

	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventAssigned, updated))
	return updated, nil
}

// RecordDecisionInput is an assessor's outcome for a claim
type RecordDecisionInput struct {
	Decision       string `json:"decision"`
	ApprovedAmount *int64 `json:"approved_amount"`
	Notes          string `json:"notes"`
}

// RecordDecision closes a claim in review as approved or rejected
func (uc *ClaimUseCase) RecordDecision(ctx context.Context, id model.ClaimID, input RecordDecisionInput) (*model.Claim, error) {
	token, err := requireRole(ctx, types.UserRoleAssessor, types.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	fields := model.FieldErrors{}
	decision, err := types.ParseDecision(input.Decision)
	if err != nil {
		fields.Add("decision", "must be approved or rejected")
	}
	if decision == types.DecisionApproved {
		if input.ApprovedAmount == nil {
			fields.Add("approved_amount", "required when approving")
		} else if *input.ApprovedAmount < 0 {
			fields.Add("approved_amount", "must not be negative")
		}
	}
	if len(fields) > 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid decision", goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}

	claim, err := uc.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if token.Role == types.UserRoleAssessor && claim.AssessorID != "" && claim.AssessorID != token.Sub {
		return nil, goerr.Wrap(ErrAccessDenied, "claim is assigned to another assessor",
			goerr.V(ClaimIDKey, id), goerr.V(UserIDKey, token.Sub))
	}

	prev, err := claim.Transition(model.DecisionEvent(decision))
	if err != nil {
		return nil, goerr.Wrap(err, "cannot record decision", goerr.V(ClaimIDKey, id))
	}

	now := uc.now().UTC()
	claim.Decision = decision
	claim.AssessorNotes = strings.TrimSpace(input.Notes)
	claim.DecidedAt = &now
	claim.ApprovedAmount = nil
	if decision == types.DecisionApproved {
		amount := *input.ApprovedAmount
		claim.ApprovedAmount = &amount
	}
	if claim.AssessorID == "" && token.Role == types.UserRoleAssessor {
		claim.AssessorID = token.Sub
	}

	// another decision may have closed the claim since it was read
	updated, err := uc.repo.Claim().Update(ctx, claim, prev)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save decision", goerr.V(ClaimIDKey, id))
	}

	h := model.NewStatusHistory(id, prev, updated.Status, token.Sub, claim.AssessorNotes)
	if err := uc.repo.History().Append(ctx, h); err != nil {
		return nil, goerr.Wrap(err, "failed to append claim history", goerr.V(ClaimIDKey, id))
	}

	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventStatusChanged, updated))
	uc.publisher.Publish(ctx, model.NewClaimEvent(types.ClaimEventDecided, updated))
	if err := uc.notifier.ClaimDecided(ctx, updated); err != nil {
		_ = errutil.Handle(ctx, err, "failed to notify decision")
	}

	logging.From(ctx).Info("claim decided",
		"claim_id", id,
		"decision", decision,
		"assessor_id", token.Sub)
	return updated, nil
}

// RequestAnalysis schedules a fresh analysis for a claim in assessor review
func (uc *ClaimUseCase) RequestAnalysis(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	if _, err := requireRole(ctx, types.UserRoleAssessor, types.UserRoleAdmin); err != nil {
		return nil, err
	}
	if !uc.analyzerEnabled {
		return nil, goerr.Wrap(ErrAnalyzerDisabled, "cannot reanalyze", goerr.V(ClaimIDKey, id))
	}

	claim, _, err := uc.getVisibleClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != types.ClaimStatusAssessorReview {
		return nil, goerr.Wrap(ErrInvalidTransition, "claim is not in assessor review",
			goerr.V(ClaimIDKey, id), goerr.V("status", claim.Status))
	}

	if err := uc.dispatcher.Dispatch(ctx, id); err != nil {
		return nil, goerr.Wrap(err, "failed to dispatch analysis", goerr.V(ClaimIDKey, id))
	}
	return claim, nil
}
