package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    types.ClaimStatus
		event   model.LifecycleEvent
		want    types.ClaimStatus
		wantErr bool
	}{
		{name: "start analysis", from: types.ClaimStatusSubmitted, event: model.EventStartAnalysis, want: types.ClaimStatusAIReview},
		{name: "skip analysis", from: types.ClaimStatusSubmitted, event: model.EventSkipAnalysis, want: types.ClaimStatusAssessorReview},
		{name: "finish analysis", from: types.ClaimStatusAIReview, event: model.EventFinishAnalysis, want: types.ClaimStatusAssessorReview},
		{name: "approve", from: types.ClaimStatusAssessorReview, event: model.EventApprove, want: types.ClaimStatusCompleted},
		{name: "reject", from: types.ClaimStatusAssessorReview, event: model.EventReject, want: types.ClaimStatusRejected},
		{name: "reanalyze", from: types.ClaimStatusAssessorReview, event: model.EventReanalyze, want: types.ClaimStatusAIReview},
		{name: "approve from submitted", from: types.ClaimStatusSubmitted, event: model.EventApprove, wantErr: true},
		{name: "finish from submitted", from: types.ClaimStatusSubmitted, event: model.EventFinishAnalysis, wantErr: true},
		{name: "approve during ai review", from: types.ClaimStatusAIReview, event: model.EventApprove, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := &model.Claim{ID: "c-1", Status: tt.from}
			prev, err := claim.Transition(tt.event)
			gt.Value(t, prev).Equal(tt.from)
			if tt.wantErr {
				gt.Error(t, err).Is(model.ErrInvalidTransition)
				gt.Value(t, claim.Status).Equal(tt.from)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, claim.Status).Equal(tt.want)
		})
	}
}

func TestTerminalStatusesAcceptNoEvent(t *testing.T) {
	events := []model.LifecycleEvent{
		model.EventStartAnalysis,
		model.EventSkipAnalysis,
		model.EventFinishAnalysis,
		model.EventApprove,
		model.EventReject,
		model.EventReanalyze,
	}

	for _, status := range []types.ClaimStatus{types.ClaimStatusCompleted, types.ClaimStatusRejected} {
		for _, ev := range events {
			claim := &model.Claim{ID: "c-1", Status: status}
			_, err := claim.Transition(ev)
			gt.Error(t, err).Is(model.ErrInvalidTransition)
			gt.Value(t, claim.Status).Equal(status)
			gt.Bool(t, claim.Status.IsValid()).True()
		}
	}
}

func TestNewLifecycleRejectsUnknownStatus(t *testing.T) {
	_, err := model.NewLifecycle("c-1", types.ClaimStatus("pending"))
	gt.Error(t, err).Is(types.ErrInvalidValue)
}

func TestDecisionEvent(t *testing.T) {
	gt.Value(t, model.DecisionEvent(types.DecisionApproved)).Equal(model.EventApprove)
	gt.Value(t, model.DecisionEvent(types.DecisionRejected)).Equal(model.EventReject)
}
