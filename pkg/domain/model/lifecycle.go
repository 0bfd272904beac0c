package model

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// ErrInvalidTransition is returned when an event is not accepted in the current status
var ErrInvalidTransition = goerr.New("invalid claim status transition")

// LifecycleEvent drives the claim lifecycle
type LifecycleEvent string

const (
	EventStartAnalysis  LifecycleEvent = "start_analysis"
	EventSkipAnalysis   LifecycleEvent = "skip_analysis"
	EventFinishAnalysis LifecycleEvent = "finish_analysis"
	EventApprove        LifecycleEvent = "approve"
	EventReject         LifecycleEvent = "reject"
	EventReanalyze      LifecycleEvent = "reanalyze"
)

// statekit state IDs. They must stay equal to the types.ClaimStatus values.
const (
	stateSubmitted      = "submitted"
	stateAIReview       = "ai_review"
	stateAssessorReview = "assessor_review"
	stateCompleted      = "completed"
	stateRejected       = "rejected"
)

func init() {
	states := map[string]types.ClaimStatus{
		stateSubmitted:      types.ClaimStatusSubmitted,
		stateAIReview:       types.ClaimStatusAIReview,
		stateAssessorReview: types.ClaimStatusAssessorReview,
		stateCompleted:      types.ClaimStatusCompleted,
		stateRejected:       types.ClaimStatusRejected,
	}
	for id, status := range states {
		if id != string(status) {
			panic(fmt.Sprintf("lifecycle state %q does not match claim status %q", id, status))
		}
	}
}

type lifecycleContext struct {
	ClaimID ClaimID
}

// Lifecycle wraps a statekit interpreter positioned at a claim's current status
type Lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

// NewLifecycle builds the claim state machine starting at status
func NewLifecycle(claimID ClaimID, status types.ClaimStatus) (*Lifecycle, error) {
	if !status.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidValue, "unknown claim status",
			goerr.V("claim_id", claimID), goerr.V("status", status))
	}

	builder := statekit.NewMachine[lifecycleContext]("claim-lifecycle").
		WithInitial(statekit.StateID(status)).
		WithContext(lifecycleContext{ClaimID: claimID})

	builder.State(stateSubmitted).
		On(statekit.EventType(EventStartAnalysis)).Target(stateAIReview).
		On(statekit.EventType(EventSkipAnalysis)).Target(stateAssessorReview).
		Done()

	builder.State(stateAIReview).
		On(statekit.EventType(EventFinishAnalysis)).Target(stateAssessorReview).
		Done()

	builder.State(stateAssessorReview).
		On(statekit.EventType(EventApprove)).Target(stateCompleted).
		On(statekit.EventType(EventReject)).Target(stateRejected).
		On(statekit.EventType(EventReanalyze)).Target(stateAIReview).
		Done()

	builder.State(stateCompleted).Done()
	builder.State(stateRejected).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build claim lifecycle")
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &Lifecycle{interpreter: interpreter}, nil
}

// Current returns the status the machine is in
func (l *Lifecycle) Current() types.ClaimStatus {
	return types.ClaimStatus(l.interpreter.State().Value)
}

// Fire sends event and returns the new status. No transition in this machine is a
// self loop, so an unchanged status means the event was rejected.
func (l *Lifecycle) Fire(event LifecycleEvent) (types.ClaimStatus, error) {
	before := l.Current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := l.Current()
	if before == after {
		return before, goerr.Wrap(ErrInvalidTransition, "event not allowed",
			goerr.V("event", event), goerr.V("status", before))
	}
	return after, nil
}

// Transition applies event to the claim's status and returns the previous status.
// The claim is unchanged when the event is rejected.
func (c *Claim) Transition(event LifecycleEvent) (types.ClaimStatus, error) {
	lc, err := NewLifecycle(c.ID, c.Status)
	if err != nil {
		return c.Status, err
	}
	from := c.Status
	to, err := lc.Fire(event)
	if err != nil {
		return from, goerr.Wrap(err, "claim transition failed", goerr.V("claim_id", c.ID))
	}
	c.Status = to
	return from, nil
}

// DecisionEvent maps an assessor decision to its lifecycle event
func DecisionEvent(d types.Decision) LifecycleEvent {
	if d == types.DecisionApproved {
		return EventApprove
	}
	return EventReject
}
