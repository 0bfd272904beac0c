package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

// AdminUseCase exposes analyzer tooling and user management to admins
type AdminUseCase struct {
	repo     interfaces.Repository
	blobs    interfaces.BlobStore
	analyzer analyzer.Service
}

func NewAdminUseCase(repo interfaces.Repository, blobs interfaces.BlobStore, svc analyzer.Service) *AdminUseCase {
	return &AdminUseCase{repo: repo, blobs: blobs, analyzer: svc}
}

func (uc *AdminUseCase) requireAnalyzer(ctx context.Context) error {
	if _, err := requireRole(ctx, types.UserRoleAdmin); err != nil {
		return err
	}
	if uc.analyzer == nil {
		return goerr.Wrap(ErrAnalyzerDisabled, "admin analyzer tooling unavailable")
	}
	return nil
}

func (uc *AdminUseCase) loadImage(ctx context.Context, id model.ImageID) (analyzer.Image, error) {
	img, err := uc.repo.Image().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return analyzer.Image{}, goerr.Wrap(ErrImageNotFound, "image not found", goerr.V(ImageIDKey, id))
		}
		return analyzer.Image{}, goerr.Wrap(err, "failed to get image", goerr.V(ImageIDKey, id))
	}
	if uc.blobs == nil {
		return analyzer.Image{}, goerr.New("blob store is not configured")
	}

	rc, err := uc.blobs.Get(ctx, img.ObjectKey)
	if err != nil {
		return analyzer.Image{}, goerr.Wrap(err, "failed to open image", goerr.V(ImageIDKey, id))
	}
	defer safe.Close(ctx, rc)

	data, err := safe.ReadAll(rc, maxBlobBytes)
	if err != nil {
		return analyzer.Image{}, goerr.Wrap(err, "failed to read image", goerr.V(ImageIDKey, id))
	}
	return analyzer.Image{FileName: img.FileName, ContentType: img.ContentType, Data: data}, nil
}

// AnalyzeDamageComponents runs the component detector on a stored image
func (uc *AdminUseCase) AnalyzeDamageComponents(ctx context.Context, id model.ImageID) (*model.DamageComponentReport, error) {
	if err := uc.requireAnalyzer(ctx); err != nil {
		return nil, err
	}
	img, err := uc.loadImage(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := uc.analyzer.AnalyzeDamageComponents(ctx, img)
	if err != nil {
		return nil, goerr.Wrap(err, "damage component analysis failed", goerr.V(ImageIDKey, id))
	}
	return report, nil
}

// RenderDamage returns the analyzer's damage overlay for a stored image
func (uc *AdminUseCase) RenderDamage(ctx context.Context, id model.ImageID) (*analyzer.RenderedImage, error) {
	if err := uc.requireAnalyzer(ctx); err != nil {
		return nil, err
	}
	img, err := uc.loadImage(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := uc.analyzer.RenderDamage(ctx, img)
	if err != nil {
		return nil, goerr.Wrap(err, "damage rendering failed", goerr.V(ImageIDKey, id))
	}
	return out, nil
}

// ListDamageComponents returns the analyzer's component catalog
func (uc *AdminUseCase) ListDamageComponents(ctx context.Context) ([]string, error) {
	if err := uc.requireAnalyzer(ctx); err != nil {
		return nil, err
	}
	names, err := uc.analyzer.ListDamageComponents(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list damage components")
	}
	return names, nil
}

// AnalyzerHealth pings the analysis service
func (uc *AdminUseCase) AnalyzerHealth(ctx context.Context) error {
	if err := uc.requireAnalyzer(ctx); err != nil {
		return err
	}
	return uc.analyzer.Ping(ctx)
}

// ListUsers returns every account
func (uc *AdminUseCase) ListUsers(ctx context.Context) ([]*model.User, error) {
	if _, err := requireRole(ctx, types.UserRoleAdmin); err != nil {
		return nil, err
	}
	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	return users, nil
}

// SetUserRole changes an account's role. Admins cannot demote themselves.
func (uc *AdminUseCase) SetUserRole(ctx context.Context, userID, role string) (*model.User, error) {
	token, err := requireRole(ctx, types.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	r, err := types.ParseUserRole(role)
	if err != nil {
		fields := model.FieldErrors{}
		fields.Add("role", "must be claimant, assessor or admin")
		return nil, goerr.Wrap(ErrInvalidInput, "invalid role", goerr.V(model.FieldErrorsKey, map[string]string(fields)))
	}
	if userID == token.Sub && r != types.UserRoleAdmin {
		return nil, goerr.Wrap(ErrInvalidInput, "admins cannot demote themselves", goerr.V(UserIDKey, userID))
	}

	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUserNotFound, "user not found", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(UserIDKey, userID))
	}

	user.Role = r
	if err := uc.repo.User().Put(ctx, user); err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V(UserIDKey, userID))
	}
	return user, nil
}
