package types

// ClaimEventType names a change published to claim subscribers
type ClaimEventType string

const (
	ClaimEventSubmitted         ClaimEventType = "claim.submitted"
	ClaimEventStatusChanged     ClaimEventType = "claim.status_changed"
	ClaimEventImageUploaded     ClaimEventType = "claim.image_uploaded"
	ClaimEventAnalysisCompleted ClaimEventType = "claim.analysis_completed"
	ClaimEventAssigned          ClaimEventType = "claim.assigned"
	ClaimEventDecided           ClaimEventType = "claim.decided"
)

// ParseStatus tells how an analyzer response body was interpreted
type ParseStatus string

const (
	// ParseStatusSchema means the body matched the JSON contract
	ParseStatusSchema ParseStatus = "schema"
	// ParseStatusPattern means values were recovered by text pattern matching
	ParseStatusPattern ParseStatus = "pattern"
	// ParseStatusFallback means nothing could be recovered and defaults were used
	ParseStatusFallback ParseStatus = "fallback"
)
