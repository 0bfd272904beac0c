package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

// TaskAnalyzeClaim is enqueued each time a claim needs an analysis run
const TaskAnalyzeClaim = "claim:analyze"

// Handler runs the analysis of one claim
type Handler func(ctx context.Context, claimID model.ClaimID) error

// AnalyzePayload is the serialized body of TaskAnalyzeClaim
type AnalyzePayload struct {
	ClaimID model.ClaimID `json:"claim_id"`
}

func encodePayload(claimID model.ClaimID) ([]byte, error) {
	data, err := json.Marshal(AnalyzePayload{ClaimID: claimID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal analyze payload", goerr.V("claim_id", claimID))
	}
	return data, nil
}

func decodePayload(task *asynq.Task) (model.ClaimID, error) {
	var p AnalyzePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return "", goerr.Wrap(asynq.SkipRetry, "invalid analyze payload", goerr.V("cause", err.Error()))
	}
	if p.ClaimID == "" {
		return "", goerr.Wrap(asynq.SkipRetry, "analyze payload has no claim ID")
	}
	return p.ClaimID, nil
}
