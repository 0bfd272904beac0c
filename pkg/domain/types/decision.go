package types

import "github.com/m-mizutani/goerr/v2"

// Decision is the assessor's outcome for a claim
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status returns the terminal claim status the decision leads to
func (d Decision) Status() ClaimStatus {
	if d == DecisionApproved {
		return ClaimStatusCompleted
	}
	return ClaimStatusRejected
}

func (d Decision) String() string {
	return string(d)
}

// ParseDecision parses a string into a Decision
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !d.IsValid() {
		return "", goerr.Wrap(ErrInvalidValue, "invalid decision", goerr.V("decision", s))
	}
	return d, nil
}
