package queue

import (
	"context"

	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/utils/async"
)

// Inline runs analysis jobs on background goroutines of the serving process
type Inline struct {
	handler Handler
	group   async.Group
}

var _ interfaces.AnalysisDispatcher = (*Inline)(nil)

func NewInline(handler Handler) *Inline {
	return &Inline{handler: handler}
}

func (x *Inline) Dispatch(ctx context.Context, claimID model.ClaimID) error {
	x.group.Dispatch(ctx, func(ctx context.Context) error {
		return x.handler(ctx, claimID)
	})
	return nil
}

// Wait blocks until dispatched jobs finish or ctx is done
func (x *Inline) Wait(ctx context.Context) error {
	return x.group.Wait(ctx)
}
