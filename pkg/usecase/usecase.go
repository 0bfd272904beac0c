package usecase

import (
	"context"

	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/config"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/secmon-lab/claimdesk/pkg/service/brief"
	"github.com/secmon-lab/claimdesk/pkg/service/notify"
	"github.com/secmon-lab/claimdesk/pkg/service/queue"
)

type UseCases struct {
	repo       interfaces.Repository
	blobs      interfaces.BlobStore
	analyzer   analyzer.Service
	dispatcher interfaces.AnalysisDispatcher
	publisher  interfaces.EventPublisher
	notifier   notify.Service
	brief      brief.Service
	policy     *config.ClaimPolicy

	Claim    *ClaimUseCase
	Analysis *AnalysisUseCase
	Admin    *AdminUseCase
	User     *UserUseCase
	Auth     AuthUseCaseInterface
}

type Option func(*UseCases)

func WithBlobStore(blobs interfaces.BlobStore) Option {
	return func(uc *UseCases) {
		uc.blobs = blobs
	}
}

// WithAnalyzer enables the analysis pipeline and admin tooling
func WithAnalyzer(svc analyzer.Service) Option {
	return func(uc *UseCases) {
		uc.analyzer = svc
	}
}

// WithDispatcher replaces the in-process analysis dispatcher
func WithDispatcher(d interfaces.AnalysisDispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

func WithEventPublisher(p interfaces.EventPublisher) Option {
	return func(uc *UseCases) {
		uc.publisher = p
	}
}

func WithNotifier(n notify.Service) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

func WithBrief(b brief.Service) Option {
	return func(uc *UseCases) {
		uc.brief = b
	}
}

func WithPolicy(p *config.ClaimPolicy) Option {
	return func(uc *UseCases) {
		uc.policy = p
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		publisher: nopPublisher{},
		notifier:  notify.Nop{},
		policy:    config.DefaultClaimPolicy(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Analysis = NewAnalysisUseCase(repo, uc.blobs, uc.analyzer, uc.publisher, uc.notifier, uc.brief)
	if uc.dispatcher == nil {
		uc.dispatcher = queue.NewInline(uc.Analysis.Run)
	}
	uc.Claim = NewClaimUseCase(repo, uc.blobs, uc.dispatcher, uc.publisher, uc.notifier, uc.policy, uc.analyzer != nil)
	uc.Admin = NewAdminUseCase(repo, uc.blobs, uc.analyzer)
	uc.User = NewUserUseCase(repo)

	return uc
}

// Dispatcher returns the analysis dispatcher in use
func (uc *UseCases) Dispatcher() interfaces.AnalysisDispatcher {
	return uc.dispatcher
}

// Policy returns the active claim policy
func (uc *UseCases) Policy() *config.ClaimPolicy {
	return uc.policy
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.ClaimEvent) {}
